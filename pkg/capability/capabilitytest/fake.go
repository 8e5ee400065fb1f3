// Package capabilitytest provides a scripted in-memory capability suite for tests.
package capabilitytest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"content-studio-be/pkg/capability"
	"content-studio-be/pkg/llm"
	"content-studio-be/pkg/workflow"
)

const (
	Ideas    = "ideas"
	Image    = "image"
	Edit     = "edit"
	Animate  = "animate"
	Caption  = "caption"
	Campaign = "campaign"
	Chat     = "chat"
)

// Fake implements every capability. Queued failures are returned, in order,
// before a call succeeds.
type Fake struct {
	mu       sync.Mutex
	calls    map[string]int
	failures map[string][]error
	seq      int

	IdeaList  []string
	Hashtags  []string
	ReplyText string
	// Hold, when set, runs at the start of every call; a non-nil error fails it
	Hold func(ctx context.Context, capability string) error
}

func NewFake() *Fake {
	return &Fake{
		calls:     make(map[string]int),
		failures:  make(map[string][]error),
		IdeaList:  []string{"Latte art close-up", "Barista at sunrise", "Autumn menu flat lay"},
		Hashtags:  []string{"#coffee", "#autumn"},
		ReplyText: "Happy to help with your content.",
	}
}

func (f *Fake) Suite() capability.Suite {
	return capability.Suite{
		Ideas:     f,
		Images:    f,
		Editor:    f,
		Animator:  f,
		Captions:  f,
		Campaigns: f,
		Chat:      f,
	}
}

// Fail queues errors for the named capability
func (f *Fake) Fail(name string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[name] = append(f.failures[name], errs...)
}

func (f *Fake) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *Fake) begin(ctx context.Context, name string) (int, error) {
	if f.Hold != nil {
		if err := f.Hold(ctx, name); err != nil {
			return 0, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	if queued := f.failures[name]; len(queued) > 0 {
		f.failures[name] = queued[1:]
		return 0, queued[0]
	}
	f.seq++
	return f.seq, nil
}

func (f *Fake) SuggestIdeas(ctx context.Context, req capability.IdeaRequest) ([]string, error) {
	if _, err := f.begin(ctx, Ideas); err != nil {
		return nil, err
	}
	ideas := f.IdeaList
	if req.Count > 0 && req.Count < len(ideas) {
		ideas = ideas[:req.Count]
	}
	return append([]string(nil), ideas...), nil
}

func (f *Fake) GenerateImage(ctx context.Context, req capability.ImageRequest) (*capability.MediaResult, error) {
	n, err := f.begin(ctx, Image)
	if err != nil {
		return nil, err
	}
	return &capability.MediaResult{Path: fmt.Sprintf("generated/image_%03d.png", n), Kind: workflow.AssetImage}, nil
}

func (f *Fake) EditImage(ctx context.Context, req capability.EditRequest) (*capability.MediaResult, error) {
	n, err := f.begin(ctx, Edit)
	if err != nil {
		return nil, err
	}
	return &capability.MediaResult{Path: fmt.Sprintf("generated/edit_%03d.png", n), Kind: workflow.AssetImage}, nil
}

func (f *Fake) Animate(ctx context.Context, req capability.AnimateRequest) (*capability.MediaResult, error) {
	n, err := f.begin(ctx, Animate)
	if err != nil {
		return nil, err
	}
	return &capability.MediaResult{Path: fmt.Sprintf("generated/video_%03d.mp4", n), Kind: workflow.AssetVideo}, nil
}

func (f *Fake) Caption(ctx context.Context, req capability.CaptionRequest) (*capability.CaptionResult, error) {
	if _, err := f.begin(ctx, Caption); err != nil {
		return nil, err
	}
	name := "us"
	if req.Brand != nil && req.Brand.CompanyName != "" {
		name = req.Brand.CompanyName
	}
	return &capability.CaptionResult{
		Caption:  "Fresh from " + name + ".",
		Hashtags: append([]string(nil), f.Hashtags...),
	}, nil
}

func (f *Fake) PlanWeek(ctx context.Context, req capability.CampaignRequest) (*workflow.WeekPlan, error) {
	if _, err := f.begin(ctx, Campaign); err != nil {
		return nil, err
	}
	days := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	plan := &workflow.WeekPlan{Week: req.Campaign.CurrentWeek, Theme: fmt.Sprintf("Week %d", req.Campaign.CurrentWeek)}
	for i := 0; i < req.Campaign.PostsPerWeek; i++ {
		plan.Posts = append(plan.Posts, workflow.PlannedPost{Day: days[i%len(days)], Idea: fmt.Sprintf("Post %d", i+1)})
	}
	return plan, nil
}

// Reply streams the canned reply word by word
func (f *Fake) Reply(ctx context.Context, req capability.ReplyRequest, onToken llm.TokenHandler) (string, error) {
	if _, err := f.begin(ctx, Chat); err != nil {
		return "", err
	}
	words := strings.SplitAfter(f.ReplyText, " ")
	for _, w := range words {
		if onToken != nil {
			if err := onToken(w); err != nil {
				return "", err
			}
		}
	}
	return f.ReplyText, nil
}
