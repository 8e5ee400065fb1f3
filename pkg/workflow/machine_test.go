package workflow

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func brandedState(stage Stage) State {
	return State{
		Stage: stage,
		Context: Context{
			Brand: &Brand{CompanyName: "Kopi Senja", Industry: "coffee"},
		},
	}
}

func withAsset(s State) State {
	s.Context.LastAsset = &AssetRef{ID: "a1", Path: "generated/a1.png", Kind: AssetImage}
	return s
}

func TestTransitionIsDeterministic(t *testing.T) {
	m := NewMachine()
	for _, stage := range Stages() {
		for _, signal := range Signals() {
			state := withAsset(brandedState(stage))
			state.Context.Prompt = "latte art"
			state.Context.Campaign = NewCampaign("May", 2, 4)

			first, err1 := m.Transition(state, signal, Patch{})
			second, err2 := m.Transition(state, signal, Patch{})

			assert.Equal(t, first, second, "%s + %s", stage, signal)
			assert.Equal(t, err1 == nil, err2 == nil, "%s + %s", stage, signal)
		}
	}
}

func TestTransitionOnlyProducesKnownStages(t *testing.T) {
	m := NewMachine()
	rng := rand.New(rand.NewSource(7))
	signals := Signals()

	state := NewState()
	for i := 0; i < 2000; i++ {
		signal := signals[rng.Intn(len(signals))]
		patch := Patch{}
		switch rng.Intn(4) {
		case 0:
			patch.Brand = &Brand{CompanyName: "Acme"}
		case 1:
			patch.Prompt = String("poster")
		case 2:
			patch.LastAsset = &AssetRef{ID: "x", Path: "generated/x.png", Kind: AssetImage}
		case 3:
			patch.Campaign = NewCampaign("", 0, 0)
		}

		result, err := m.Transition(state, signal, patch)
		require.True(t, result.State.Stage.Valid(), "step %d produced %q", i, result.State.Stage)
		if err != nil {
			assert.Equal(t, state, result.State, "rejection must not change the state")
		}
		state = result.State
	}
}

func TestTransitionTable(t *testing.T) {
	m := NewMachine()
	tests := []struct {
		name       string
		state      State
		signal     Signal
		patch      Patch
		wantStage  Stage
		recognized bool
	}{
		{
			name:       "brand info leaves setup",
			state:      NewState(),
			signal:     SignalBrandInfoProvided,
			patch:      Patch{Brand: &Brand{CompanyName: "Acme"}},
			wantStage:  StageIdeaSelection,
			recognized: true,
		},
		{
			name:       "generation from idea selection",
			state:      brandedState(StageIdeaSelection),
			signal:     SignalGenerationRequest,
			patch:      Patch{Prompt: String("summer promo")},
			wantStage:  StageGenerating,
			recognized: true,
		},
		{
			name:       "image generated moves to review",
			state:      func() State { s := brandedState(StageGenerating); s.Context.Prompt = "p"; return s }(),
			signal:     SignalImageGenerated,
			patch:      Patch{LastAsset: &AssetRef{ID: "a", Path: "generated/a.png", Kind: AssetImage}},
			wantStage:  StageReviewEdit,
			recognized: true,
		},
		{
			name:       "caption request from review",
			state:      withAsset(brandedState(StageReviewEdit)),
			signal:     SignalCaptionRequested,
			wantStage:  StageCaptioning,
			recognized: true,
		},
		{
			name:       "caption generated goes idle",
			state:      withAsset(brandedState(StageCaptioning)),
			signal:     SignalCaptionGenerated,
			patch:      Patch{Caption: String("Fresh brew"), Hashtags: []string{"#coffee"}},
			wantStage:  StageIdle,
			recognized: true,
		},
		{
			name:       "edit from idle re-enters review",
			state:      withAsset(brandedState(StageIdle)),
			signal:     SignalEditRequested,
			wantStage:  StageReviewEdit,
			recognized: true,
		},
		{
			name:       "unknown pair stays in place",
			state:      NewState(),
			signal:     SignalImageGenerated,
			wantStage:  StageBrandSetup,
			recognized: false,
		},
		{
			name:       "chit-chat stays in place",
			state:      brandedState(StageIdeaSelection),
			signal:     SignalNone,
			wantStage:  StageIdeaSelection,
			recognized: false,
		},
		{
			name:       "turn completed from review",
			state:      withAsset(brandedState(StageReviewEdit)),
			signal:     SignalTurnCompleted,
			wantStage:  StageIdle,
			recognized: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := m.Transition(tt.state, tt.signal, tt.patch)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStage, result.State.Stage)
			assert.Equal(t, tt.recognized, result.Recognized)
			assert.Equal(t, tt.state.Stage, result.Previous)
		})
	}
}

func TestCampaignRequestedFromEveryStage(t *testing.T) {
	m := NewMachine()
	for _, stage := range Stages() {
		t.Run(string(stage), func(t *testing.T) {
			state := withAsset(brandedState(stage))
			state.Context.Caption = "keep me"

			result, err := m.Transition(state, SignalCampaignRequested, Patch{Campaign: NewCampaign("June", 3, 4)})
			require.NoError(t, err)
			assert.Equal(t, StageCampaignPlanning, result.State.Stage)
			assert.Equal(t, "keep me", result.State.Context.Caption)
			assert.Equal(t, state.Context.LastAsset, result.State.Context.LastAsset)
			if stage == StageCampaignPlanning {
				assert.Empty(t, result.State.Context.InterruptedStage)
			} else {
				assert.Equal(t, stage, result.State.Context.InterruptedStage)
			}
		})
	}
}

func TestCampaignInterruptionResumesThroughIdle(t *testing.T) {
	m := NewMachine()
	state := withAsset(brandedState(StageReviewEdit))

	planning, err := m.Transition(state, SignalCampaignRequested, Patch{Campaign: NewCampaign("", 0, 0)})
	require.NoError(t, err)

	campaign := planning.State.Context.Campaign.WithWeek(WeekPlan{Week: 1, Posts: []PlannedPost{{Day: "Mon", Idea: "x"}}})
	idle, err := m.Transition(planning.State, SignalCampaignPlanned, Patch{Campaign: campaign})
	require.NoError(t, err)
	assert.Equal(t, StageIdle, idle.State.Stage)
	assert.Equal(t, StageReviewEdit, idle.State.Context.InterruptedStage)
	assert.Equal(t, 2, idle.State.Context.Campaign.CurrentWeek)

	edit, err := m.Transition(idle.State, SignalEditRequested, Patch{})
	require.NoError(t, err)
	assert.Equal(t, StageReviewEdit, edit.State.Stage)
	assert.Empty(t, edit.State.Context.InterruptedStage)
	assert.Equal(t, state.Context.LastAsset, edit.State.Context.LastAsset)
}

func TestCampaignBeforeOnboardingReturnsToBrandSetup(t *testing.T) {
	m := NewMachine()

	planning, err := m.Transition(NewState(), SignalCampaignRequested, Patch{Campaign: NewCampaign("March", 2, 4)})
	require.NoError(t, err)
	assert.Equal(t, StageCampaignPlanning, planning.State.Stage)
	assert.Equal(t, StageBrandSetup, planning.State.Context.InterruptedStage)

	campaign := planning.State.Context.Campaign.WithWeek(WeekPlan{Week: 1, Posts: []PlannedPost{{Day: "Mon", Idea: "x"}}})
	planned, err := m.Transition(planning.State, SignalCampaignPlanned, Patch{Campaign: campaign})
	require.NoError(t, err)
	assert.True(t, planned.Recognized)
	assert.Equal(t, StageBrandSetup, planned.State.Stage)
	assert.Empty(t, planned.State.Context.InterruptedStage)
	assert.Len(t, planned.State.Context.Campaign.Weeks, 1)
	assert.Nil(t, planned.State.Context.Brand)

	// generation has no edge out of brand setup
	generate, err := m.Transition(planned.State, SignalGenerationRequest, Patch{Prompt: String("latte")})
	require.NoError(t, err)
	assert.False(t, generate.Recognized)
	assert.Equal(t, StageBrandSetup, generate.State.Stage)
	assert.Empty(t, generate.State.Context.Prompt)

	onboarded, err := m.Transition(planned.State, SignalBrandInfoProvided, Patch{Brand: &Brand{CompanyName: "Kopi Senja"}})
	require.NoError(t, err)
	assert.Equal(t, StageIdeaSelection, onboarded.State.Stage)
	assert.NotNil(t, onboarded.State.Context.Campaign)
}

func TestUnbrandedStatesCannotReachGenerationOrIdle(t *testing.T) {
	m := NewMachine()

	tests := []struct {
		name   string
		state  State
		signal Signal
		patch  Patch
	}{
		{
			name:   "generate from idle",
			state:  State{Stage: StageIdle},
			signal: SignalGenerationRequest,
			patch:  Patch{Prompt: String("latte")},
		},
		{
			name:   "regenerate while generating",
			state:  State{Stage: StageGenerating, Context: Context{Prompt: "latte"}},
			signal: SignalGenerationRequest,
			patch:  Patch{Prompt: String("mocha")},
		},
		{
			name:   "caption finished without brand",
			state:  withAsset(State{Stage: StageCaptioning}),
			signal: SignalCaptionGenerated,
			patch:  Patch{Caption: String("Hi")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := m.Transition(tt.state, tt.signal, tt.patch)
			assert.ErrorIs(t, err, ErrBrandRequired)
			assert.Equal(t, tt.state, result.State)
			assert.False(t, result.Recognized)
		})
	}
}

func TestEditWithoutAssetIsRejected(t *testing.T) {
	m := NewMachine()
	for _, signal := range []Signal{SignalEditRequested, SignalAnimationRequested, SignalCaptionRequested} {
		t.Run(string(signal), func(t *testing.T) {
			state := NewState()
			result, err := m.Transition(state, signal, Patch{})

			var rejection *RejectionError
			require.True(t, errors.As(err, &rejection))
			assert.ErrorIs(t, err, ErrNoGeneratedAsset)
			assert.Equal(t, StageBrandSetup, rejection.Stage)
			assert.Equal(t, state, result.State)
			assert.False(t, result.Recognized)
		})
	}
}

func TestRejectionKeepsInputState(t *testing.T) {
	m := NewMachine()

	t.Run("missing prompt", func(t *testing.T) {
		state := brandedState(StageIdeaSelection)
		result, err := m.Transition(state, SignalGenerationRequest, Patch{})
		assert.ErrorIs(t, err, ErrMissingContext)
		assert.Equal(t, state, result.State)
	})

	t.Run("brand missing on idea request", func(t *testing.T) {
		state := State{Stage: StageIdle}
		result, err := m.Transition(state, SignalIdeasRequested, Patch{Prompt: String("ignored")})
		assert.ErrorIs(t, err, ErrBrandRequired)
		assert.ErrorIs(t, err, ErrMissingContext)
		assert.Empty(t, result.State.Context.Prompt)
	})

	t.Run("turn completed without brand", func(t *testing.T) {
		result, err := m.Transition(NewState(), SignalTurnCompleted, Patch{})
		assert.ErrorIs(t, err, ErrBrandRequired)
		assert.Equal(t, StageBrandSetup, result.State.Stage)
	})

	t.Run("unknown stage", func(t *testing.T) {
		_, err := m.Transition(State{Stage: "PAINTING"}, SignalNone, Patch{})
		assert.ErrorIs(t, err, ErrUnknownStage)
	})
}

func TestIdleKeepsContext(t *testing.T) {
	m := NewMachine()
	state := withAsset(brandedState(StageCaptioning))
	state.Context.Prompt = "espresso"

	result, err := m.Transition(state, SignalCaptionGenerated, Patch{Caption: String("Wake up"), Hashtags: []string{"#espresso"}})
	require.NoError(t, err)
	assert.Equal(t, StageIdle, result.State.Stage)
	assert.Equal(t, "espresso", result.State.Context.Prompt)
	assert.Equal(t, "Kopi Senja", result.State.Context.Brand.CompanyName)
	assert.Equal(t, []string{"#espresso"}, result.State.Context.Hashtags)
}

func TestTransitionDoesNotAliasInput(t *testing.T) {
	m := NewMachine()
	state := brandedState(StageIdeaSelection)
	state.Context.Ideas = []string{"one", "two"}

	result, err := m.Transition(state, SignalIdeaSelected, Patch{SelectedIdea: String("two")})
	require.NoError(t, err)

	result.State.Context.Ideas[0] = "changed"
	result.State.Context.Brand.CompanyName = "changed"
	assert.Equal(t, "one", state.Context.Ideas[0])
	assert.Equal(t, "Kopi Senja", state.Context.Brand.CompanyName)
}

func TestAddReferenceImages(t *testing.T) {
	brand := &Brand{}
	require.NoError(t, brand.AddReferenceImages("a.png", "b.png", "c.png"))
	require.NoError(t, brand.AddReferenceImages("d.png", "e.png"))

	err := brand.AddReferenceImages("f.png")
	assert.ErrorIs(t, err, ErrTooManyReferenceImages)
	assert.Len(t, brand.ReferenceImages, MaxReferenceImages)

	fresh := &Brand{}
	err = fresh.AddReferenceImages("1", "2", "3", "4", "5", "6")
	assert.ErrorIs(t, err, ErrTooManyReferenceImages)
	assert.Empty(t, fresh.ReferenceImages)
}

func TestParseStageAndSignal(t *testing.T) {
	for _, stage := range Stages() {
		parsed, err := ParseStage(string(stage))
		require.NoError(t, err)
		assert.Equal(t, stage, parsed)
	}
	_, err := ParseStage("DRAFTING")
	assert.Error(t, err)

	signal, err := ParseSignal("IMAGE_GENERATED")
	require.NoError(t, err)
	assert.Equal(t, SignalImageGenerated, signal)
	_, err = ParseSignal("image_generated")
	assert.Error(t, err)
}

func TestCampaignProgress(t *testing.T) {
	c := NewCampaign("July", 0, 2)
	assert.Equal(t, 2, c.PostsPerWeek)
	assert.False(t, c.Complete())

	c = c.WithWeek(WeekPlan{Week: 1, Posts: []PlannedPost{{Day: "Tue", Idea: "a"}, {Day: "Fri", Idea: "b"}}})
	c = c.WithWeek(WeekPlan{Week: 2, Posts: []PlannedPost{{Day: "Wed", Idea: "c"}}})
	assert.True(t, c.Complete())
	assert.Equal(t, 3, c.PostsPlanned())
}
