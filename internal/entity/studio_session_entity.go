package entity

import (
	"time"

	"content-studio-be/pkg/workflow"

	"github.com/google/uuid"
)

const DefaultUserId = "default_user"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of a session's append-only history
type Turn struct {
	Id        uuid.UUID
	Seq       int
	Role      Role
	Content   string
	Failed    bool
	CreatedAt time.Time
}

type StudioSession struct {
	Id           uuid.UUID
	UserId       string
	State        workflow.State
	History      []Turn
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// Expired reports whether the session has been inactive for longer than timeout
func (s *StudioSession) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActiveAt) > timeout
}

func (s *StudioSession) CountTurns(role Role) int {
	n := 0
	for _, t := range s.History {
		if t.Role == role {
			n++
		}
	}
	return n
}

// Clone returns a deep copy so callers never share history or context with a store
func (s *StudioSession) Clone() *StudioSession {
	if s == nil {
		return nil
	}
	out := *s
	out.State = s.State.Clone()
	if s.History != nil {
		out.History = make([]Turn, len(s.History))
		copy(out.History, s.History)
	}
	return &out
}

// StudioSessionSummary is the listing view of a session
type StudioSessionSummary struct {
	Id           uuid.UUID
	UserId       string
	Stage        workflow.Stage
	CompanyName  string
	TurnCount    int
	CreatedAt    time.Time
	LastActiveAt time.Time
}

func (s *StudioSession) Summary() StudioSessionSummary {
	summary := StudioSessionSummary{
		Id:           s.Id,
		UserId:       s.UserId,
		Stage:        s.State.Stage,
		TurnCount:    len(s.History),
		CreatedAt:    s.CreatedAt,
		LastActiveAt: s.LastActiveAt,
	}
	if s.State.Context.Brand != nil {
		summary.CompanyName = s.State.Context.Brand.CompanyName
	}
	return summary
}
