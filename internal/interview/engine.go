package interview

import (
	"context"

	"github.com/Realist2022/Interview-AI-Testimator-backend/internal/session"
)

// Engine drives one interview turn end to end: session resolution,
// utterance recording, stage processing, and commit. It is the shared
// entry point behind the HTTP API and the chat frontends.
type Engine struct {
	store *session.Store
	proc  *Processor
}

// NewEngine creates an Engine over the given store and processor.
func NewEngine(store *session.Store, proc *Processor) *Engine {
	return &Engine{store: store, proc: proc}
}

// Exchange is what a frontend returns to the caller after a turn.
type Exchange struct {
	Reply   string
	Stage   session.Stage
	History []session.Turn
}

// Converse processes one turn for the session key. Turns for the same
// key are serialized by the store; state is committed only after a
// successful turn, so a failed collaborator call leaves the session
// exactly as it was and a resubmit is safe.
func (e *Engine) Converse(ctx context.Context, sessionID, jobTitle, userResponse string) (*Exchange, error) {
	var out *Exchange
	err := e.store.WithSession(sessionID, func(sess *session.Session) error {
		history := sess.CloneHistory()
		answers := sess.CloneAnswers()

		// Record the utterance unless it is the start signal. Whether it
		// also counts as an answer depends on where in the script it
		// landed, judged against the pre-append history.
		if userResponse != "" && userResponse != session.StartSentinel {
			if IsAnswer(sess.Stage, len(sess.History), userResponse) {
				answers = append(answers, userResponse)
			}
			history = append(history, session.Turn{Role: session.RoleUser, Text: userResponse})
		}

		view := View{
			Stage:         sess.Stage,
			FollowUpCount: sess.FollowUpCount,
			History:       history,
			Answers:       answers,
		}
		res, err := e.proc.ProcessTurn(ctx, view, jobTitle)
		if err != nil {
			return err
		}

		if res.ModelCalled {
			if sess.Stage == session.StageInitial {
				history = append(history, session.Turn{Role: session.RoleUser, Text: session.StartMarker})
			}
			history = append(history, session.Turn{Role: session.RoleModel, Text: res.Reply})
		}

		sess.History = history
		sess.Answers = answers
		sess.Stage = res.Stage
		sess.FollowUpCount = res.FollowUpCount

		out = &Exchange{
			Reply:   res.Reply,
			Stage:   sess.Stage,
			History: sess.CloneHistory(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reset discards any stored state for the session key. Idempotent.
func (e *Engine) Reset(sessionID string) {
	e.store.Delete(sessionID)
}
