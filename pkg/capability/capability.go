package capability

import (
	"context"

	"content-studio-be/pkg/llm"
	"content-studio-be/pkg/workflow"
)

type IdeaRequest struct {
	Brand *workflow.Brand
	Theme string
	Count int
}

type ImageRequest struct {
	Prompt string
	Brand  *workflow.Brand
}

type EditRequest struct {
	SourcePath  string
	Instruction string
}

type AnimateRequest struct {
	SourcePath      string
	MotionPrompt    string
	DurationSeconds int
}

// MediaResult names a newly written, write-once media file
type MediaResult struct {
	Path        string
	Kind        workflow.AssetKind
	Description string
}

type CaptionRequest struct {
	AssetPath string
	Brief     string
	Brand     *workflow.Brand
}

type CaptionResult struct {
	Caption  string
	Hashtags []string
}

type CampaignRequest struct {
	Brand    *workflow.Brand
	Campaign workflow.Campaign
	Brief    string
}

type ReplyRequest struct {
	History []llm.Message
	Message string
	// Summary describes the session's workflow position for the model
	Summary string
}

type IdeaSuggester interface {
	SuggestIdeas(ctx context.Context, req IdeaRequest) ([]string, error)
}

type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*MediaResult, error)
}

type ImageEditor interface {
	EditImage(ctx context.Context, req EditRequest) (*MediaResult, error)
}

type Animator interface {
	Animate(ctx context.Context, req AnimateRequest) (*MediaResult, error)
}

type Captioner interface {
	Caption(ctx context.Context, req CaptionRequest) (*CaptionResult, error)
}

type CampaignPlanner interface {
	PlanWeek(ctx context.Context, req CampaignRequest) (*workflow.WeekPlan, error)
}

// Responder answers conversational turns, streaming tokens through onToken
type Responder interface {
	Reply(ctx context.Context, req ReplyRequest, onToken llm.TokenHandler) (string, error)
}

// Suite bundles the capabilities a dispatcher can call
type Suite struct {
	Ideas     IdeaSuggester
	Images    ImageGenerator
	Editor    ImageEditor
	Animator  Animator
	Captions  Captioner
	Campaigns CampaignPlanner
	Chat      Responder
}
