package workflow

type edge struct {
	from   Stage
	signal Signal
}

// transitions holds the stage-specific edges. CAMPAIGN_REQUESTED and
// TURN_COMPLETED are accepted from every stage and handled in Transition.
var transitions = map[edge]Stage{
	{StageBrandSetup, SignalBrandInfoProvided}: StageIdeaSelection,

	{StageIdeaSelection, SignalBrandInfoProvided}: StageIdeaSelection,
	{StageIdeaSelection, SignalIdeasRequested}:    StageIdeaSelection,
	{StageIdeaSelection, SignalIdeasSuggested}:    StageIdeaSelection,
	{StageIdeaSelection, SignalIdeaSelected}:      StageIdeaSelection,
	{StageIdeaSelection, SignalGenerationRequest}: StageGenerating,

	{StageGenerating, SignalGenerationRequest}: StageGenerating,
	{StageGenerating, SignalImageGenerated}:    StageReviewEdit,

	{StageReviewEdit, SignalBrandInfoProvided}:  StageReviewEdit,
	{StageReviewEdit, SignalEditRequested}:      StageReviewEdit,
	{StageReviewEdit, SignalAssetEdited}:        StageReviewEdit,
	{StageReviewEdit, SignalAnimationRequested}: StageReviewEdit,
	{StageReviewEdit, SignalAnimationGenerated}: StageReviewEdit,
	{StageReviewEdit, SignalCaptionRequested}:   StageCaptioning,
	{StageReviewEdit, SignalGenerationRequest}:  StageGenerating,
	{StageReviewEdit, SignalIdeasRequested}:     StageIdeaSelection,

	{StageCaptioning, SignalCaptionRequested}: StageCaptioning,
	{StageCaptioning, SignalCaptionGenerated}: StageIdle,

	{StageCampaignPlanning, SignalBrandInfoProvided}: StageCampaignPlanning,
	{StageCampaignPlanning, SignalCampaignPlanned}:   StageIdle,

	{StageIdle, SignalBrandInfoProvided}:  StageIdeaSelection,
	{StageIdle, SignalIdeasRequested}:     StageIdeaSelection,
	{StageIdle, SignalIdeaSelected}:       StageIdeaSelection,
	{StageIdle, SignalGenerationRequest}:  StageGenerating,
	{StageIdle, SignalEditRequested}:      StageReviewEdit,
	{StageIdle, SignalAnimationRequested}: StageReviewEdit,
	{StageIdle, SignalCaptionRequested}:   StageCaptioning,
}

// Result describes the outcome of a transition attempt
type Result struct {
	State      State
	Previous   Stage
	Signal     Signal
	Recognized bool
}

// Changed reports whether the stage moved
func (r Result) Changed() bool {
	return r.State.Stage != r.Previous
}

// Machine applies signals to workflow states. It holds no mutable state and
// performs no I/O, so one instance can be shared freely.
type Machine struct {
	edges map[edge]Stage
}

func NewMachine() *Machine {
	return &Machine{edges: transitions}
}

// Next returns the target stage for (from, signal) and whether an edge exists
func (m *Machine) Next(from Stage, signal Signal) (Stage, bool) {
	switch signal {
	case SignalCampaignRequested:
		return StageCampaignPlanning, true
	case SignalTurnCompleted:
		return StageIdle, true
	}
	to, ok := m.edges[edge{from, signal}]
	return to, ok
}

// Transition applies signal and patch to state. Unknown pairs leave the state
// as it is with Recognized false. A rejection returns the input state and a
// *RejectionError; nothing of the patch is applied.
func (m *Machine) Transition(state State, signal Signal, patch Patch) (Result, error) {
	result := Result{State: state.Clone(), Previous: state.Stage, Signal: signal}

	if !state.Stage.Valid() {
		return result, reject(state.Stage, signal, ErrUnknownStage)
	}
	if err := precondition(state.Context, signal); err != nil {
		return result, reject(state.Stage, signal, err)
	}

	to, ok := m.Next(state.Stage, signal)
	if !ok {
		return result, nil
	}

	next := patch.Apply(state.Context)
	if signal == SignalCampaignPlanned && !next.Brand.Configured() {
		// a campaign planned before onboarding resumes brand setup
		to = StageBrandSetup
	}
	if err := satisfies(to, next); err != nil {
		return result, reject(state.Stage, signal, err)
	}

	switch {
	case signal == SignalCampaignRequested:
		if state.Stage != StageCampaignPlanning {
			next.InterruptedStage = state.Stage
		}
	case to != StageIdle && to != StageCampaignPlanning:
		next.InterruptedStage = ""
	}

	result.State = State{Stage: to, Context: next}
	result.Recognized = true
	return result, nil
}

// precondition checks requirements on the context before the signal is applied
func precondition(c Context, signal Signal) error {
	switch signal {
	case SignalEditRequested, SignalAnimationRequested, SignalCaptionRequested:
		if c.LastAsset == nil {
			return ErrNoGeneratedAsset
		}
	case SignalTurnCompleted:
		if !c.Brand.Configured() {
			return ErrBrandRequired
		}
	}
	return nil
}

// satisfies checks that a context holds what the stage needs
func satisfies(stage Stage, c Context) error {
	switch stage {
	case StageIdeaSelection, StageIdle:
		if !c.Brand.Configured() {
			return ErrBrandRequired
		}
	case StageGenerating:
		if !c.Brand.Configured() {
			return ErrBrandRequired
		}
		if c.Prompt == "" {
			return missing("prompt")
		}
	case StageReviewEdit, StageCaptioning:
		if c.LastAsset == nil || c.LastAsset.Path == "" {
			return missing("last asset")
		}
	case StageCampaignPlanning:
		if c.Campaign == nil {
			return missing("campaign")
		}
	}
	return nil
}
