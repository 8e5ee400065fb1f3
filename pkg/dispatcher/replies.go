package dispatcher

import (
	"errors"
	"fmt"
	"strings"

	"content-studio-be/pkg/capability"
	"content-studio-be/pkg/workflow"
)

func rejectionMessage(err error, state workflow.State) string {
	var attErr *AttachmentError
	switch {
	case errors.Is(err, workflow.ErrNoGeneratedAsset):
		return "There is no generated image yet. Ask me to create one first."
	case errors.Is(err, workflow.ErrBrandRequired):
		return "Let's set up your brand first: tell me your company name, upload a logo or share an overview."
	case errors.Is(err, workflow.ErrTooManyReferenceImages):
		return fmt.Sprintf("You can add up to %d reference images. None of these were added.", workflow.MaxReferenceImages)
	case errors.Is(err, ErrNoIdeas):
		return "I haven't suggested any ideas yet. Ask me for some ideas first."
	case errors.Is(err, ErrIdeaOutOfRange):
		return fmt.Sprintf("Please pick a number between 1 and %d.", len(state.Context.Ideas))
	case errors.As(err, &attErr):
		return "I couldn't read that attachment: " + attErr.Error()
	case errors.Is(err, workflow.ErrMissingContext):
		return "I need a bit more detail before I can do that. " + stageHint(state.Stage)
	}
	return "I can't do that right now. " + stageHint(state.Stage)
}

func notApplicableHint(signal workflow.Signal, stage workflow.Stage) string {
	return fmt.Sprintf("%s is not available while in %s. %s", describeSignal(signal), stage, stageHint(stage))
}

func describeSignal(signal workflow.Signal) string {
	switch signal {
	case workflow.SignalBrandInfoProvided:
		return "Updating brand details"
	case workflow.SignalIdeasRequested:
		return "Suggesting ideas"
	case workflow.SignalIdeaSelected:
		return "Picking an idea"
	case workflow.SignalGenerationRequest:
		return "Generating an image"
	case workflow.SignalEditRequested:
		return "Editing"
	case workflow.SignalAnimationRequested:
		return "Animating"
	case workflow.SignalCaptionRequested:
		return "Captioning"
	}
	return "That request"
}

// stageHint tells the user what they can do next
func stageHint(stage workflow.Stage) string {
	switch stage {
	case workflow.StageBrandSetup:
		return "Start by telling me about your brand or uploading your logo."
	case workflow.StageIdeaSelection:
		return "Ask for post ideas, pick one by number, or describe the image you want."
	case workflow.StageGenerating:
		return "Describe the image you want me to create."
	case workflow.StageReviewEdit:
		return "You can ask for edits, an animation, a caption, or a fresh image."
	case workflow.StageCaptioning:
		return "Ask me to write the caption."
	case workflow.StageCampaignPlanning:
		return "Tell me about the campaign, for example \"2 posts per week in March\"."
	}
	return "Ask for ideas, a new image, or a campaign plan."
}

func brandReply(brand *workflow.Brand, first bool) string {
	var b strings.Builder
	if first {
		b.WriteString("Thanks, your brand is set up")
	} else {
		b.WriteString("Brand details updated")
	}
	if brand != nil && brand.CompanyName != "" {
		fmt.Fprintf(&b, " for %s", brand.CompanyName)
	}
	b.WriteString(".")
	if colors := brand.Colors(); len(colors) > 0 {
		fmt.Fprintf(&b, " I'll use your colors (%s).", strings.Join(colors, ", "))
	}
	if brand != nil && len(brand.ReferenceImages) > 0 {
		fmt.Fprintf(&b, " %d reference image(s) saved.", len(brand.ReferenceImages))
	}
	b.WriteString(" Want some post ideas, or do you already know what to create?")
	return b.String()
}

func completionReply(c workflow.Context) string {
	if c.Campaign != nil && !c.Campaign.Complete() && len(c.Campaign.Weeks) > 0 {
		return fmt.Sprintf("Great work! Your campaign has %d of %d weeks planned. Say \"next week\" whenever you want to continue.",
			len(c.Campaign.Weeks), c.Campaign.TotalWeeks)
	}
	return "Great work! Let me know when you want to create something else."
}

func ideasReply(ideas []string) string {
	var b strings.Builder
	b.WriteString("Here are some ideas:\n")
	for i, idea := range ideas {
		fmt.Fprintf(&b, "%d. %s\n", i+1, idea)
	}
	b.WriteString("Reply with a number to pick one.")
	return b.String()
}

func mediaReply(lead string, media *capability.MediaResult, follow string) string {
	reply := fmt.Sprintf("%s: %s.", lead, media.Path)
	if media.Description != "" {
		reply += " " + media.Description
	}
	return reply + " " + follow
}

func captionReply(caption string, hashtags []string) string {
	if len(hashtags) == 0 {
		return caption
	}
	return caption + "\n\n" + strings.Join(hashtags, " ")
}

func campaignReply(c *workflow.Campaign, plan workflow.WeekPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Week %d of %d", plan.Week, c.TotalWeeks)
	if c.Month != "" {
		fmt.Fprintf(&b, " (%s)", c.Month)
	}
	if plan.Theme != "" {
		fmt.Fprintf(&b, ": %s", plan.Theme)
	}
	b.WriteString("\n")
	for _, p := range plan.Posts {
		fmt.Fprintf(&b, "- %s: %s\n", p.Day, p.Idea)
	}
	if c.Complete() {
		fmt.Fprintf(&b, "Your campaign is fully planned with %d posts.", c.PostsPlanned())
	} else {
		b.WriteString("Say \"next week\" to plan the following week.")
	}
	return b.String()
}

// summarize describes the session's workflow position for the responder
func summarize(state workflow.State) string {
	c := state.Context
	parts := []string{"Current stage: " + string(state.Stage) + "."}
	if c.Brand.Configured() {
		name := c.Brand.CompanyName
		if name == "" {
			name = "unnamed brand"
		}
		parts = append(parts, "Brand: "+name+".")
	} else {
		parts = append(parts, "No brand information yet.")
	}
	if c.SelectedIdea != "" {
		parts = append(parts, "Selected idea: "+c.SelectedIdea+".")
	}
	if c.LastAsset != nil {
		parts = append(parts, "Latest image: "+c.LastAsset.Path+".")
	}
	if c.Caption != "" {
		parts = append(parts, "Caption written.")
	}
	if c.Campaign != nil {
		parts = append(parts, fmt.Sprintf("Campaign: %d of %d weeks planned.", len(c.Campaign.Weeks), c.Campaign.TotalWeeks))
	}
	return strings.Join(parts, " ")
}
