package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"content-studio-be/internal/entity"
	"content-studio-be/pkg/capability"
	"content-studio-be/pkg/llm"
	"content-studio-be/pkg/store"
	"content-studio-be/pkg/workflow"

	"github.com/google/uuid"
)

var (
	companyNamePattern  = regexp.MustCompile(`(?i)\b(?:company|brand|business)(?:'s)?(?: name)? is\s+([^,.;!\n]+)`)
	monthPattern        = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\b`)
	postsPerWeekPattern = regexp.MustCompile(`(?i)\b(\d+)\s*posts?\s*(?:per|a|each)\s*week\b`)
	weeksPattern        = regexp.MustCompile(`(?i)\b(\d+)\s*weeks?\b`)
	nextWeekPattern     = regexp.MustCompile(`(?i)\b(next week|continue|keep going)\b`)
)

const maxChatHistory = 12

func (d *Dispatcher) provideBrand(t *turn) *Outcome {
	state := t.state()
	brand, err := applyAttachments(state.Context.Brand, t.in.Attachments)
	if err != nil {
		return d.rejected(t, err)
	}
	if !HasBrandInfo(t.in.Attachments) {
		text := strings.TrimSpace(t.in.Message)
		if brand.Overview == "" {
			brand.Overview = text
		} else {
			brand.Overview += "\n" + text
		}
		if m := companyNamePattern.FindStringSubmatch(text); m != nil && brand.CompanyName == "" {
			brand.CompanyName = strings.TrimSpace(m[1])
		}
	}

	res, err := d.machine.Transition(state, workflow.SignalBrandInfoProvided, workflow.Patch{Brand: brand})
	if err != nil {
		return d.rejected(t, err)
	}
	if !res.Recognized {
		return d.finish(t, OutcomeRejected, notApplicableHint(t.signal, state.Stage), nil, nil, nil, nil)
	}
	next := res.State
	return d.finish(t, OutcomeApplied, brandReply(next.Context.Brand, state.Stage == workflow.StageBrandSetup), &next, nil, nil, nil)
}

func (d *Dispatcher) selectIdea(t *turn) *Outcome {
	state := t.state()
	ideas := state.Context.Ideas
	if len(ideas) == 0 {
		return d.rejected(t, ErrNoIdeas)
	}
	n, ok := PickedIdea(t.in.Message)
	if !ok || n > len(ideas) {
		return d.rejected(t, ErrIdeaOutOfRange)
	}
	idea := ideas[n-1]

	res, err := d.machine.Transition(state, workflow.SignalIdeaSelected, workflow.Patch{
		SelectedIdea: workflow.String(idea),
		Prompt:       workflow.String(idea),
	})
	if err != nil {
		return d.rejected(t, err)
	}
	if !res.Recognized {
		return d.finish(t, OutcomeRejected, notApplicableHint(t.signal, state.Stage), nil, nil, nil, nil)
	}
	next := res.State
	reply := fmt.Sprintf("Good pick: %q. Say \"go ahead\" and I'll create the image, or describe any changes first.", idea)
	return d.finish(t, OutcomeApplied, reply, &next, nil, nil, nil)
}

func (d *Dispatcher) complete(t *turn) *Outcome {
	state := t.state()
	res, err := d.machine.Transition(state, workflow.SignalTurnCompleted, workflow.Patch{})
	if err != nil {
		return d.rejected(t, err)
	}
	next := res.State
	return d.finish(t, OutcomeApplied, completionReply(next.Context), &next, nil, nil, nil)
}

func (d *Dispatcher) suggestIdeas(ctx context.Context, t *turn) (*Outcome, error) {
	if d.caps.Ideas == nil {
		return d.converse(ctx, t, "Idea suggestions are not available right now.")
	}
	theme := strings.TrimSpace(t.in.Message)
	return d.run(ctx, t, step{
		name:    "ideas",
		request: workflow.SignalIdeasRequested,
		status:  "Brainstorming post ideas...",
		call: func(ctx context.Context, state workflow.State) (*stepResult, error) {
			ideas, err := d.caps.Ideas.SuggestIdeas(ctx, capability.IdeaRequest{
				Brand: state.Context.Brand,
				Theme: theme,
				Count: d.cfg.IdeaCount,
			})
			if err != nil {
				return nil, err
			}
			if len(ideas) == 0 {
				return nil, &capability.TransientError{Err: errors.New("no ideas returned")}
			}
			return &stepResult{
				signal: workflow.SignalIdeasSuggested,
				patch:  workflow.Patch{Ideas: ideas},
				reply:  ideasReply(ideas),
			}, nil
		},
	})
}

func (d *Dispatcher) generate(ctx context.Context, t *turn) (*Outcome, error) {
	if d.caps.Images == nil {
		return d.converse(ctx, t, "Image generation is not available right now.")
	}
	state := t.state()
	prompt := strings.TrimSpace(t.in.Message)
	if isAffirmation(prompt) {
		switch {
		case state.Context.SelectedIdea != "":
			prompt = state.Context.SelectedIdea
		case state.Context.Prompt != "":
			prompt = state.Context.Prompt
		}
	}

	return d.run(ctx, t, step{
		name:    "image",
		request: workflow.SignalGenerationRequest,
		patch:   workflow.Patch{Prompt: workflow.String(prompt)},
		status:  "Generating your image...",
		call: func(ctx context.Context, state workflow.State) (*stepResult, error) {
			media, err := d.caps.Images.GenerateImage(ctx, capability.ImageRequest{
				Prompt: state.Context.Prompt,
				Brand:  state.Context.Brand,
			})
			if err != nil {
				return nil, err
			}
			asset := d.newAsset(t, media, state.Context.Prompt, nil)
			ref := asset.Ref()
			return &stepResult{
				signal: workflow.SignalImageGenerated,
				patch: workflow.Patch{
					LastAsset: &ref,
					Caption:   workflow.String(""),
					Hashtags:  []string{},
				},
				reply:  mediaReply("Here is your image", media, "Want any edits, an animation or a caption?"),
				assets: []entity.GeneratedAsset{asset},
			}, nil
		},
	})
}

func (d *Dispatcher) edit(ctx context.Context, t *turn) (*Outcome, error) {
	if d.caps.Editor == nil {
		return d.converse(ctx, t, "Image editing is not available right now.")
	}
	instruction := strings.TrimSpace(t.in.Message)
	return d.run(ctx, t, step{
		name:    "edit",
		request: workflow.SignalEditRequested,
		status:  "Editing your image...",
		call: func(ctx context.Context, state workflow.State) (*stepResult, error) {
			source := state.Context.LastAsset
			media, err := d.caps.Editor.EditImage(ctx, capability.EditRequest{
				SourcePath:  source.Path,
				Instruction: instruction,
			})
			if err != nil {
				return nil, err
			}
			asset := d.newAsset(t, media, instruction, parseAssetID(source.ID))
			ref := asset.Ref()
			return &stepResult{
				signal: workflow.SignalAssetEdited,
				patch:  workflow.Patch{LastAsset: &ref},
				reply:  mediaReply("Here is the edited version", media, "The original is kept as it was."),
				assets: []entity.GeneratedAsset{asset},
			}, nil
		},
	})
}

func (d *Dispatcher) animate(ctx context.Context, t *turn) (*Outcome, error) {
	if d.caps.Animator == nil {
		return d.converse(ctx, t, "Animation is not available right now.")
	}
	motion := strings.TrimSpace(t.in.Message)
	return d.run(ctx, t, step{
		name:    "animate",
		request: workflow.SignalAnimationRequested,
		status:  "Animating your image, this can take a while...",
		call: func(ctx context.Context, state workflow.State) (*stepResult, error) {
			source := state.Context.LastAsset
			media, err := d.caps.Animator.Animate(ctx, capability.AnimateRequest{
				SourcePath:      source.Path,
				MotionPrompt:    motion,
				DurationSeconds: d.cfg.AnimationLength,
			})
			if err != nil {
				return nil, err
			}
			if media.Kind == "" {
				media.Kind = workflow.AssetVideo
			}
			asset := d.newAsset(t, media, motion, parseAssetID(source.ID))
			ref := asset.Ref()
			return &stepResult{
				signal: workflow.SignalAnimationGenerated,
				patch:  workflow.Patch{LastVideo: &ref},
				reply:  mediaReply("Here is your animation", media, "Want a caption to go with it?"),
				assets: []entity.GeneratedAsset{asset},
			}, nil
		},
	})
}

func (d *Dispatcher) caption(ctx context.Context, t *turn) (*Outcome, error) {
	if d.caps.Captions == nil {
		return d.converse(ctx, t, "Captions are not available right now.")
	}
	brief := strings.TrimSpace(t.in.Message)
	return d.run(ctx, t, step{
		name:    "caption",
		request: workflow.SignalCaptionRequested,
		status:  "Writing your caption...",
		call: func(ctx context.Context, state workflow.State) (*stepResult, error) {
			asset := state.Context.LastAsset
			full := brief
			if state.Context.Prompt != "" {
				full = state.Context.Prompt + "\n" + brief
			}
			res, err := d.caps.Captions.Caption(ctx, capability.CaptionRequest{
				AssetPath: asset.Path,
				Brief:     full,
				Brand:     state.Context.Brand,
			})
			if err != nil {
				return nil, err
			}
			if strings.TrimSpace(res.Caption) == "" {
				return nil, &capability.TransientError{Err: errors.New("empty caption")}
			}
			hashtags := append([]string{}, res.Hashtags...)
			out := &stepResult{
				signal: workflow.SignalCaptionGenerated,
				patch: workflow.Patch{
					Caption:  workflow.String(res.Caption),
					Hashtags: hashtags,
				},
				reply: captionReply(res.Caption, hashtags),
			}
			if id := parseAssetID(asset.ID); id != nil {
				out.captions = []store.AssetCaption{{AssetId: *id, Caption: res.Caption, Hashtags: hashtags}}
			}
			return out, nil
		},
	})
}

func (d *Dispatcher) planCampaign(ctx context.Context, t *turn) (*Outcome, error) {
	if d.caps.Campaigns == nil {
		return d.converse(ctx, t, "Campaign planning is not available right now.")
	}
	state := t.state()
	campaign := state.Context.Campaign
	if campaign == nil || campaign.Complete() || !nextWeekPattern.MatchString(t.in.Message) {
		campaign = parseCampaign(t.in.Message)
	}
	brief := strings.TrimSpace(t.in.Message)

	return d.run(ctx, t, step{
		name:    "campaign",
		request: workflow.SignalCampaignRequested,
		patch:   workflow.Patch{Campaign: campaign},
		status:  fmt.Sprintf("Planning week %d of %d...", campaign.CurrentWeek, campaign.TotalWeeks),
		call: func(ctx context.Context, state workflow.State) (*stepResult, error) {
			current := state.Context.Campaign
			plan, err := d.caps.Campaigns.PlanWeek(ctx, capability.CampaignRequest{
				Brand:    state.Context.Brand,
				Campaign: *current,
				Brief:    brief,
			})
			if err != nil {
				return nil, err
			}
			if plan.Week == 0 {
				plan.Week = current.CurrentWeek
			}
			updated := current.WithWeek(*plan)
			reply := campaignReply(updated, *plan)
			if !state.Context.Brand.Configured() {
				reply += "\n" + stageHint(workflow.StageBrandSetup)
			}
			return &stepResult{
				signal: workflow.SignalCampaignPlanned,
				patch:  workflow.Patch{Campaign: updated},
				reply:  reply,
			}, nil
		},
	})
}

// converse hands the turn to the responder. State never changes; hint, when
// set, tells the model why the request could not be acted on.
func (d *Dispatcher) converse(ctx context.Context, t *turn, hint string) (*Outcome, error) {
	state := t.state()
	if d.caps.Chat == nil {
		reply := hint
		if reply == "" {
			reply = stageHint(state.Stage)
		}
		return d.finish(t, OutcomeReplied, reply, nil, nil, nil, nil), nil
	}

	summary := summarize(state)
	if hint != "" {
		summary += "\nThe user's last request cannot be done right now: " + hint
	}
	req := capability.ReplyRequest{
		History: chatHistory(t.in.Session.History),
		Message: t.in.Message,
		Summary: summary,
	}

	streamed := false
	res, err := d.invoke(ctx, t, "chat", state.Stage, func(ctx context.Context) (*stepResult, error) {
		reply, err := d.caps.Chat.Reply(ctx, req, func(chunk string) error {
			streamed = true
			return t.progress.Text(chunk)
		})
		if err != nil {
			if streamed {
				// partial text already reached the client
				return nil, &capability.PermanentError{Err: err}
			}
			return nil, err
		}
		return &stepResult{reply: reply}, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return d.failed(t, err), nil
	}
	return d.finish(t, OutcomeReplied, res.reply, nil, nil, nil, nil), nil
}

func (d *Dispatcher) newAsset(t *turn, media *capability.MediaResult, prompt string, source *uuid.UUID) entity.GeneratedAsset {
	kind := media.Kind
	if kind == "" {
		kind = workflow.AssetImage
	}
	return entity.GeneratedAsset{
		Id:            uuid.New(),
		SessionId:     t.in.Session.Id,
		Kind:          kind,
		Path:          media.Path,
		SourceAssetId: source,
		Prompt:        prompt,
		CreatedAt:     t.at,
	}
}

func parseAssetID(id string) *uuid.UUID {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil
	}
	return &parsed
}

func parseCampaign(message string) *workflow.Campaign {
	month := ""
	if m := monthPattern.FindStringSubmatch(message); m != nil {
		month = strings.ToUpper(m[1][:1]) + strings.ToLower(m[1][1:])
	}
	perWeek, weeks := 0, 0
	if m := postsPerWeekPattern.FindStringSubmatch(message); m != nil {
		perWeek, _ = strconv.Atoi(m[1])
	}
	if m := weeksPattern.FindStringSubmatch(message); m != nil {
		weeks, _ = strconv.Atoi(m[1])
	}
	return workflow.NewCampaign(month, perWeek, weeks)
}

func chatHistory(turns []entity.Turn) []llm.Message {
	if len(turns) > maxChatHistory {
		turns = turns[len(turns)-maxChatHistory:]
	}
	out := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		if t.Failed {
			continue
		}
		out = append(out, llm.Message{Role: string(t.Role), Content: t.Content})
	}
	return out
}
