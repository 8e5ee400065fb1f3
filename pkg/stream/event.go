package stream

import (
	"content-studio-be/pkg/workflow"
)

type EventType string

const (
	EventSession EventType = "session"
	EventStatus  EventType = "status"
	EventText    EventType = "text"
	EventDone    EventType = "done"
	EventError   EventType = "error"
)

// Event is one frame of partial output sent to the client
type Event struct {
	Type      EventType      `json:"type"`
	SessionId string         `json:"session_id,omitempty"`
	Stage     workflow.Stage `json:"stage,omitempty"`
	Message   string         `json:"message,omitempty"`
	Text      string         `json:"text,omitempty"`
	New       bool           `json:"is_new,omitempty"`
	Done      *Done          `json:"done,omitempty"`
}

// Done closes a successful turn
type Done struct {
	Outcome  string              `json:"outcome"`
	Signal   workflow.Signal     `json:"signal"`
	Reply    string              `json:"reply"`
	Assets   []workflow.AssetRef `json:"assets,omitempty"`
	Caption  string              `json:"caption,omitempty"`
	Hashtags []string            `json:"hashtags,omitempty"`
	Campaign *workflow.Campaign  `json:"campaign,omitempty"`
}

// Sink receives events in order. An error means the client is gone.
type Sink func(Event) error

type emitter struct {
	sink   Sink
	cancel func()
	err    error
}

func (e *emitter) emit(ev Event) error {
	if e.err != nil {
		return e.err
	}
	if err := e.sink(ev); err != nil {
		e.err = err
		e.cancel()
		return err
	}
	return nil
}

func (e *emitter) gone() bool {
	return e.err != nil
}

// progress adapts the emitter to the dispatcher's progress callbacks
type progress struct {
	em *emitter
}

func (p progress) Status(stage workflow.Stage, message string) {
	_ = p.em.emit(Event{Type: EventStatus, Stage: stage, Message: message})
}

func (p progress) Text(chunk string) error {
	return p.em.emit(Event{Type: EventText, Text: chunk})
}
