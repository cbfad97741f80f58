// Package session holds per-interview conversational state and the
// in-memory store that owns it.
package session

import "time"

// Stage is a named step in the fixed interview script. It only ever
// advances forward, except for the self-loop on StageAskingFollowUps.
type Stage string

const (
	StageInitial              Stage = "initial"
	StageAwaitingCoreQuestion Stage = "awaiting_first_core_question"
	StageAskingFollowUps      Stage = "asking_follow_ups"
	StagePreFeedback          Stage = "pre_feedback"
	StageGeneratingFeedback   Stage = "generating_feedback"
	StageComplete             Stage = "interview_complete"
)

// Valid reports whether s is one of the defined stage labels.
func (s Stage) Valid() bool {
	switch s {
	case StageInitial, StageAwaitingCoreQuestion, StageAskingFollowUps,
		StagePreFeedback, StageGeneratingFeedback, StageComplete:
		return true
	}
	return false
}

// Turn roles. The values match the provider wire format.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// StartSentinel is the utterance a client sends to kick off an interview.
// It is never recorded in history or answers.
const StartSentinel = "START_INTERVIEW"

// StartMarker is the synthetic user turn recorded when a session begins.
const StartMarker = "Interview session started."

// Turn is one role-tagged utterance in the conversation history.
// Immutable once appended.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Session is the per-caller interview state, keyed by an opaque
// caller-supplied ID. History is append-only; Answers holds the subset of
// user utterances classified as responses to interview questions.
type Session struct {
	ID            string
	Stage         Stage
	FollowUpCount int
	History       []Turn
	Answers       []string
	CreatedAt     time.Time
}

// New returns a fresh session at the initial stage.
func New(id string) *Session {
	return &Session{
		ID:        id,
		Stage:     StageInitial,
		CreatedAt: time.Now().UTC(),
	}
}

// CloneHistory returns a copy of the history slice. Turns themselves are
// value types, so a shallow copy suffices.
func (s *Session) CloneHistory() []Turn {
	out := make([]Turn, len(s.History))
	copy(out, s.History)
	return out
}

// CloneAnswers returns a copy of the answers slice.
func (s *Session) CloneAnswers() []string {
	out := make([]string, len(s.Answers))
	copy(out, s.Answers)
	return out
}
