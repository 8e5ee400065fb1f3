package stream

import (
	"context"
	"errors"
	"strings"
	"time"

	"content-studio-be/internal/entity"
	"content-studio-be/internal/pkg/logger"
	"content-studio-be/internal/pkg/metrics"
	"content-studio-be/pkg/dispatcher"
	"content-studio-be/pkg/events"
	"content-studio-be/pkg/session"
	"content-studio-be/pkg/store"
	"content-studio-be/pkg/workflow"
)

var (
	ErrClientGone = errors.New("client disconnected before the turn was committed")
	ErrEmptyTurn  = errors.New("a turn needs a message or at least one attachment")
)

const (
	commitTimeout  = 10 * time.Second
	publishTimeout = 5 * time.Second

	msgBusy        = "Another message in this conversation is still being processed. Please wait for it to finish."
	msgSaveFailed  = "Your message could not be saved. Please send it again."
	msgUnavailable = "The studio is unavailable right now. Please try again shortly."
)

type SubmitRequest struct {
	SessionId   string
	UserId      string
	Message     string
	Attachments []dispatcher.Attachment
}

// Result describes a committed turn
type Result struct {
	Session *entity.StudioSession
	IsNew   bool
	Outcome *dispatcher.Outcome
}

// Coordinator runs one conversational turn end to end: resolve the session,
// serialize on it, dispatch, stream progress and commit. A turn whose client
// goes away before the commit leaves no trace.
type Coordinator struct {
	sessions   *session.Manager
	locker     session.TurnLocker
	dispatcher *dispatcher.Dispatcher
	store      store.MemoryStore
	publisher  events.Publisher
	metrics    *metrics.Metrics
	logger     logger.ILogger
}

type Option func(*Coordinator)

func WithPublisher(p events.Publisher) Option {
	return func(c *Coordinator) { c.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

func WithLogger(l logger.ILogger) Option {
	return func(c *Coordinator) { c.logger = l }
}

func NewCoordinator(sessions *session.Manager, locker session.TurnLocker, d *dispatcher.Dispatcher, st store.MemoryStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		sessions:   sessions,
		locker:     locker,
		dispatcher: d,
		store:      st,
		publisher:  events.NopPublisher{},
		logger:     logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit handles one user turn, sending events to sink as it goes. The
// returned error is non-nil whenever the turn was not committed.
func (c *Coordinator) Submit(ctx context.Context, req SubmitRequest, sink Sink) (*Result, error) {
	if strings.TrimSpace(req.Message) == "" && len(req.Attachments) == 0 {
		return nil, ErrEmptyTurn
	}
	started := time.Now()
	c.metrics.TurnStarted()
	defer c.metrics.TurnFinished()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	em := &emitter{sink: sink, cancel: cancel}

	sess, isNew, err := c.sessions.Resolve(ctx, req.SessionId, req.UserId)
	if err != nil {
		c.logger.Error("STREAM", "Failed to resolve session", map[string]interface{}{
			"session_id": req.SessionId,
			"error":      err.Error(),
		})
		_ = em.emit(Event{Type: EventError, Message: msgUnavailable})
		return nil, err
	}
	c.metrics.SessionResolved(isNew)
	if isNew {
		c.publish(ctx, events.SessionCreated(sess.Id.String(), sess.UserId, sess.CreatedAt))
	}
	if err := em.emit(Event{Type: EventSession, SessionId: sess.Id.String(), Stage: sess.State.Stage, New: isNew}); err != nil {
		return nil, ErrClientGone
	}

	release, err := c.locker.Acquire(ctx, sess.Id.String())
	if err != nil {
		if errors.Is(err, session.ErrSessionBusy) {
			_ = em.emit(Event{Type: EventError, SessionId: sess.Id.String(), Message: msgBusy})
		}
		return nil, err
	}
	defer release()

	// the snapshot taken before the lock may predate a turn that just committed
	snapshot, err := c.sessions.Get(ctx, sess.Id)
	if err != nil {
		_ = em.emit(Event{Type: EventError, SessionId: sess.Id.String(), Message: msgUnavailable})
		return nil, err
	}

	out, err := c.dispatcher.Dispatch(ctx, dispatcher.TurnInput{
		Session:     snapshot,
		Message:     req.Message,
		Attachments: req.Attachments,
	}, progress{em: em})
	if err != nil || em.gone() {
		c.discard(snapshot, started)
		if err == nil || errors.Is(err, context.Canceled) {
			err = ErrClientGone
		}
		return nil, err
	}

	commitCtx, cancelCommit := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancelCommit()
	if err := c.store.CommitTurn(commitCtx, out.Commit); err != nil {
		c.logger.Error("STREAM", "Failed to commit turn", map[string]interface{}{
			"session_id": snapshot.Id.String(),
			"signal":     string(out.Signal),
			"error":      err.Error(),
		})
		c.metrics.ObserveTurn(string(out.Signal), "store_failed", time.Since(started))
		_ = em.emit(Event{Type: EventError, SessionId: snapshot.Id.String(), Stage: snapshot.State.Stage, Message: msgSaveFailed})
		return nil, err
	}
	c.metrics.ObserveTurn(string(out.Signal), string(out.Kind), time.Since(started))
	c.announce(commitCtx, snapshot, out)

	// non-streamed replies arrive as a single text frame
	if out.Kind != dispatcher.OutcomeReplied {
		_ = em.emit(Event{Type: EventText, Text: out.Reply})
	}
	if out.Kind == dispatcher.OutcomeFailed {
		_ = em.emit(Event{Type: EventError, SessionId: snapshot.Id.String(), Stage: out.State.Stage, Message: out.Reply})
	} else {
		_ = em.emit(Event{Type: EventDone, SessionId: snapshot.Id.String(), Stage: out.State.Stage, Done: done(out)})
	}

	final := snapshot.Clone()
	final.State = out.State
	for _, t := range out.Commit.Turns {
		t.Seq = len(final.History) + 1
		final.History = append(final.History, t)
	}
	final.LastActiveAt = out.Commit.ActiveAt
	return &Result{Session: final, IsNew: isNew, Outcome: out}, nil
}

func (c *Coordinator) discard(sess *entity.StudioSession, started time.Time) {
	c.metrics.ObserveTurn("", "discarded", time.Since(started))
	c.logger.Warn("STREAM", "Turn discarded before commit", map[string]interface{}{
		"session_id": sess.Id.String(),
		"stage":      string(sess.State.Stage),
	})
}

func (c *Coordinator) announce(ctx context.Context, sess *entity.StudioSession, out *dispatcher.Outcome) {
	at := out.Commit.ActiveAt
	c.publish(ctx, events.TurnCommitted(sess.Id.String(), sess.UserId, string(out.Signal), string(out.Kind), string(out.State.Stage), at))
	for _, a := range out.Assets {
		c.publish(ctx, events.AssetRecorded(sess.Id.String(), sess.UserId, a.Id.String(), string(a.Kind), a.Path, at))
	}
}

func (c *Coordinator) publish(ctx context.Context, evt events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := c.publisher.Publish(ctx, evt); err != nil {
		c.logger.Warn("STREAM", "Failed to publish event", map[string]interface{}{
			"event": evt.EventType(),
			"error": err.Error(),
		})
	}
}

func done(out *dispatcher.Outcome) *Done {
	d := &Done{
		Outcome: string(out.Kind),
		Signal:  out.Signal,
		Reply:   out.Reply,
	}
	for _, a := range out.Assets {
		d.Assets = append(d.Assets, a.Ref())
	}
	if out.Signal == workflow.SignalCaptionRequested && out.Kind == dispatcher.OutcomeApplied {
		d.Caption = out.State.Context.Caption
		d.Hashtags = out.State.Context.Hashtags
	}
	if out.Signal == workflow.SignalCampaignRequested && out.Kind == dispatcher.OutcomeApplied {
		d.Campaign = out.State.Context.Campaign
	}
	return d
}
