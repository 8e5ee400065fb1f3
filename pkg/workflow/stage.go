package workflow

import "fmt"

// Stage is a discrete step of the content workflow
type Stage string

const (
	StageBrandSetup       Stage = "BRAND_SETUP"
	StageIdeaSelection    Stage = "IDEA_SELECTION"
	StageGenerating       Stage = "GENERATING"
	StageReviewEdit       Stage = "REVIEW_EDIT"
	StageCaptioning       Stage = "CAPTIONING"
	StageCampaignPlanning Stage = "CAMPAIGN_PLANNING"
	StageIdle             Stage = "IDLE"
)

var allStages = []Stage{
	StageBrandSetup,
	StageIdeaSelection,
	StageGenerating,
	StageReviewEdit,
	StageCaptioning,
	StageCampaignPlanning,
	StageIdle,
}

// Stages returns every stage of the workflow in declaration order
func Stages() []Stage {
	out := make([]Stage, len(allStages))
	copy(out, allStages)
	return out
}

func (s Stage) Valid() bool {
	for _, candidate := range allStages {
		if s == candidate {
			return true
		}
	}
	return false
}

func (s Stage) String() string {
	return string(s)
}

// ParseStage converts a stored value back into a Stage
func ParseStage(value string) (Stage, error) {
	stage := Stage(value)
	if !stage.Valid() {
		return "", fmt.Errorf("workflow: unknown stage %q", value)
	}
	return stage, nil
}

// Signal is the classified intent of a turn, or the outcome of a capability call
type Signal string

const (
	SignalBrandInfoProvided  Signal = "BRAND_INFO_PROVIDED"
	SignalIdeasRequested     Signal = "IDEAS_REQUESTED"
	SignalIdeasSuggested     Signal = "IDEAS_SUGGESTED"
	SignalIdeaSelected       Signal = "IDEA_SELECTED"
	SignalGenerationRequest  Signal = "GENERATION_REQUESTED"
	SignalImageGenerated     Signal = "IMAGE_GENERATED"
	SignalEditRequested      Signal = "EDIT_REQUESTED"
	SignalAssetEdited        Signal = "ASSET_EDITED"
	SignalAnimationRequested Signal = "ANIMATION_REQUESTED"
	SignalAnimationGenerated Signal = "ANIMATION_GENERATED"
	SignalCaptionRequested   Signal = "CAPTION_REQUESTED"
	SignalCaptionGenerated   Signal = "CAPTION_GENERATED"
	SignalCampaignRequested  Signal = "CAMPAIGN_REQUESTED"
	SignalCampaignPlanned    Signal = "CAMPAIGN_PLANNED"
	SignalTurnCompleted      Signal = "TURN_COMPLETED"
	SignalNone               Signal = "NONE"
)

var allSignals = []Signal{
	SignalBrandInfoProvided,
	SignalIdeasRequested,
	SignalIdeasSuggested,
	SignalIdeaSelected,
	SignalGenerationRequest,
	SignalImageGenerated,
	SignalEditRequested,
	SignalAssetEdited,
	SignalAnimationRequested,
	SignalAnimationGenerated,
	SignalCaptionRequested,
	SignalCaptionGenerated,
	SignalCampaignRequested,
	SignalCampaignPlanned,
	SignalTurnCompleted,
	SignalNone,
}

// Signals returns every known signal
func Signals() []Signal {
	out := make([]Signal, len(allSignals))
	copy(out, allSignals)
	return out
}

func (s Signal) Valid() bool {
	for _, candidate := range allSignals {
		if s == candidate {
			return true
		}
	}
	return false
}

func (s Signal) String() string {
	return string(s)
}

func ParseSignal(value string) (Signal, error) {
	signal := Signal(value)
	if !signal.Valid() {
		return "", fmt.Errorf("workflow: unknown signal %q", value)
	}
	return signal, nil
}
