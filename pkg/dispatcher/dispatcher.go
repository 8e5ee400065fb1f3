package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"content-studio-be/internal/entity"
	"content-studio-be/internal/pkg/logger"
	"content-studio-be/internal/pkg/metrics"
	"content-studio-be/pkg/capability"
	"content-studio-be/pkg/store"
	"content-studio-be/pkg/workflow"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Config struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	IdeaCount       int
	AnimationLength int // seconds
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		InitialInterval: time.Second,
		MaxInterval:     8 * time.Second,
		IdeaCount:       3,
		AnimationLength: 5,
	}
}

// Progress receives partial output while a turn runs
type Progress interface {
	Status(stage workflow.Stage, message string)
	Text(chunk string) error
}

type nopProgress struct{}

func (nopProgress) Status(workflow.Stage, string) {}
func (nopProgress) Text(string) error             { return nil }

type TurnInput struct {
	Session     *entity.StudioSession
	Message     string
	Attachments []Attachment
}

type OutcomeKind string

const (
	OutcomeApplied  OutcomeKind = "applied"
	OutcomeReplied  OutcomeKind = "replied"
	OutcomeRejected OutcomeKind = "rejected"
	OutcomeFailed   OutcomeKind = "failed"
)

// Outcome is the result of one turn. Commit holds everything the turn
// changes; nothing has been written yet.
type Outcome struct {
	Kind   OutcomeKind
	Signal workflow.Signal
	Reply  string
	State  workflow.State
	Assets []entity.GeneratedAsset
	Commit store.TurnCommit
	Err    error
}

// Dispatcher classifies a turn, runs at most one capability and builds the
// commit for it. It never writes to the store.
type Dispatcher struct {
	classifier Classifier
	machine    *workflow.Machine
	caps       capability.Suite
	cfg        Config
	logger     logger.ILogger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	now        func() time.Time
}

type Option func(*Dispatcher)

func WithClassifier(c Classifier) Option {
	return func(d *Dispatcher) { d.classifier = c }
}

func WithConfig(cfg Config) Option {
	return func(d *Dispatcher) { d.cfg = cfg }
}

func WithLogger(l logger.ILogger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func New(caps capability.Suite, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		classifier: NewKeywordClassifier(),
		machine:    workflow.NewMachine(),
		caps:       caps,
		cfg:        DefaultConfig(),
		logger:     logger.NewNopLogger(),
		tracer:     otel.Tracer("content-studio-be/dispatcher"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.cfg.MaxAttempts == 0 {
		d.cfg.MaxAttempts = 1
	}
	return d
}

type turn struct {
	in       TurnInput
	signal   workflow.Signal
	at       time.Time
	progress Progress
}

func (t *turn) state() workflow.State {
	return t.in.Session.State
}

// Dispatch handles one turn against the given session snapshot. The only
// error it returns is the context's; every other failure is an Outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, in TurnInput, progress Progress) (*Outcome, error) {
	if progress == nil {
		progress = nopProgress{}
	}
	t := &turn{
		in:       in,
		signal:   d.classifier.Classify(in.Message, in.Attachments, in.Session.State.Stage),
		at:       d.now(),
		progress: progress,
	}

	var out *Outcome
	var err error
	switch t.signal {
	case workflow.SignalBrandInfoProvided:
		out = d.provideBrand(t)
	case workflow.SignalIdeaSelected:
		out = d.selectIdea(t)
	case workflow.SignalTurnCompleted:
		out = d.complete(t)
	case workflow.SignalIdeasRequested:
		out, err = d.suggestIdeas(ctx, t)
	case workflow.SignalGenerationRequest:
		out, err = d.generate(ctx, t)
	case workflow.SignalEditRequested:
		out, err = d.edit(ctx, t)
	case workflow.SignalAnimationRequested:
		out, err = d.animate(ctx, t)
	case workflow.SignalCaptionRequested:
		out, err = d.caption(ctx, t)
	case workflow.SignalCampaignRequested:
		out, err = d.planCampaign(ctx, t)
	default:
		out, err = d.converse(ctx, t, "")
	}
	if err != nil {
		return nil, err
	}

	details := map[string]interface{}{
		"session_id": in.Session.Id.String(),
		"signal":     string(t.signal),
		"outcome":    string(out.Kind),
		"from":       string(in.Session.State.Stage),
		"to":         string(out.State.Stage),
	}
	if out.Err != nil {
		details["error"] = out.Err.Error()
		d.logger.Warn("DISPATCHER", "Turn not applied", details)
	} else {
		d.logger.Info("DISPATCHER", "Turn dispatched", details)
	}
	return out, nil
}

// finish builds the outcome and its commit. next nil keeps the stored state.
func (d *Dispatcher) finish(t *turn, kind OutcomeKind, reply string, next *workflow.State, assets []entity.GeneratedAsset, captions []store.AssetCaption, cause error) *Outcome {
	user := entity.Turn{Id: uuid.New(), Role: entity.RoleUser, Content: userContent(t.in), CreatedAt: t.at}
	assistant := entity.Turn{Id: uuid.New(), Role: entity.RoleAssistant, Content: reply, Failed: kind == OutcomeFailed, CreatedAt: t.at}

	final := t.state().Clone()
	if next != nil {
		final = next.Clone()
	}
	return &Outcome{
		Kind:   kind,
		Signal: t.signal,
		Reply:  reply,
		State:  final,
		Assets: assets,
		Err:    cause,
		Commit: store.TurnCommit{
			SessionId: t.in.Session.Id,
			Turns:     []entity.Turn{user, assistant},
			State:     next,
			Assets:    assets,
			Captions:  captions,
			ActiveAt:  t.at,
		},
	}
}

func (d *Dispatcher) rejected(t *turn, err error) *Outcome {
	return d.finish(t, OutcomeRejected, rejectionMessage(err, t.state()), nil, nil, nil, err)
}

func (d *Dispatcher) failed(t *turn, err error) *Outcome {
	return d.finish(t, OutcomeFailed, capability.UserMessage(err), nil, nil, nil, err)
}

func userContent(in TurnInput) string {
	if strings.TrimSpace(in.Message) != "" || len(in.Attachments) == 0 {
		return in.Message
	}
	kinds := make([]string, 0, len(in.Attachments))
	for _, a := range in.Attachments {
		kinds = append(kinds, string(a.Kind()))
	}
	return fmt.Sprintf("[attached: %s]", strings.Join(kinds, ", "))
}

// stepResult is what a capability call contributes to the turn
type stepResult struct {
	signal   workflow.Signal
	patch    workflow.Patch
	reply    string
	assets   []entity.GeneratedAsset
	captions []store.AssetCaption
}

type step struct {
	name    string
	request workflow.Signal
	patch   workflow.Patch
	status  string
	call    func(ctx context.Context, state workflow.State) (*stepResult, error)
}

// run applies the request signal, calls the capability and applies the
// result signal. Only a fully successful run produces a new state.
func (d *Dispatcher) run(ctx context.Context, t *turn, s step) (*Outcome, error) {
	requested, err := d.machine.Transition(t.state(), s.request, s.patch)
	if err != nil {
		return d.rejected(t, err), nil
	}
	if !requested.Recognized {
		return d.converse(ctx, t, notApplicableHint(t.signal, t.state().Stage))
	}

	t.progress.Status(requested.State.Stage, s.status)
	res, err := d.invoke(ctx, t, s.name, requested.State.Stage, func(ctx context.Context) (*stepResult, error) {
		return s.call(ctx, requested.State)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return d.failed(t, err), nil
	}

	final, err := d.machine.Transition(requested.State, res.signal, res.patch)
	if err == nil && !final.Recognized {
		err = ErrResultNotApplied
	}
	if err != nil {
		return d.failed(t, &CapabilityError{Capability: s.name, Attempts: 1, Err: fmt.Errorf("%w: %v", ErrResultNotApplied, err)}), nil
	}
	next := final.State
	return d.finish(t, OutcomeApplied, res.reply, &next, res.assets, res.captions, nil), nil
}

// invoke calls a capability, retrying transient failures with exponential
// backoff. Permanent failures return after the first attempt.
func (d *Dispatcher) invoke(ctx context.Context, t *turn, name string, stage workflow.Stage, call func(context.Context) (*stepResult, error)) (*stepResult, error) {
	ctx, span := d.tracer.Start(ctx, "capability."+name, trace.WithAttributes(
		attribute.String("session.id", t.in.Session.Id.String()),
		attribute.String("workflow.signal", string(t.signal)),
	))
	defer span.End()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = d.cfg.InitialInterval
	policy.MaxInterval = d.cfg.MaxInterval

	attempts := 0
	res, err := backoff.Retry(ctx, func() (*stepResult, error) {
		attempts++
		res, err := call(ctx)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		if !capability.IsTransient(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(d.cfg.MaxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			d.metrics.IncCapabilityRetry(name)
			d.logger.Warn("DISPATCHER", "Capability failed, retrying", map[string]interface{}{
				"capability": name,
				"attempt":    attempts,
				"wait":       wait.String(),
				"error":      err.Error(),
			})
			t.progress.Status(stage, fmt.Sprintf("Still working on it (attempt %d of %d)...", attempts+1, d.cfg.MaxAttempts))
		}),
	)
	span.SetAttributes(attribute.Int("capability.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		d.metrics.IncCapabilityCall(name, "failed")
		return nil, &CapabilityError{Capability: name, Attempts: attempts, Err: err}
	}
	d.metrics.IncCapabilityCall(name, "ok")
	return res, nil
}
