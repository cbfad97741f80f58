package interview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Realist2022/Interview-AI-Testimator-backend/internal/config"
	"github.com/Realist2022/Interview-AI-Testimator-backend/internal/session"
	"github.com/Realist2022/Interview-AI-Testimator-backend/llm"
)

// ErrGeneration marks a failed collaborator call. The session is left at
// its pre-call state, so the caller can simply resubmit.
var ErrGeneration = errors.New("interview: generation failed")

// ErrUnknownStage marks session state outside the defined stage set.
// This is internal corruption, never something to silently default.
var ErrUnknownStage = errors.New("interview: unknown stage")

// View is an immutable snapshot of session state a turn runs against.
// The latest user utterance, when there is one, is already part of
// History and Answers.
type View struct {
	Stage         session.Stage
	FollowUpCount int
	History       []session.Turn
	Answers       []string
}

// Result is the outcome of a processed turn. Stage and FollowUpCount are
// the successor values the caller commits; nothing in the View was
// mutated. ModelCalled is false only for the at-limit follow-up guard,
// which transitions without consulting the model.
type Result struct {
	Reply         string
	Stage         session.Stage
	FollowUpCount int
	ModelCalled   bool
}

// Processor turns one stage of the interview script. It makes at most
// one collaborator call per turn and never mutates its input.
type Processor struct {
	client  llm.Client
	limit   int
	tokens  config.OutputTokens
	timeout time.Duration
}

// NewProcessor creates a Processor. limit is the follow-up question
// budget; timeout bounds each collaborator call (zero means unbounded).
func NewProcessor(client llm.Client, limit int, tokens config.OutputTokens, timeout time.Duration) *Processor {
	return &Processor{
		client:  client,
		limit:   limit,
		tokens:  tokens,
		timeout: timeout,
	}
}

// ProcessTurn looks up the stage entry for view.Stage, renders its
// instruction, issues one request to the collaborator with the replayed
// history, and returns the reply plus successor state. On failure the
// returned error wraps ErrGeneration and the Result is zero; the caller
// must commit nothing.
func (p *Processor) ProcessTurn(ctx context.Context, view View, jobTitle string) (Result, error) {
	if !view.Stage.Valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownStage, view.Stage)
	}
	spec := stages[view.Stage]

	// A session that somehow enters the follow-up stage with its budget
	// already spent moves on without a model call.
	if view.Stage == session.StageAskingFollowUps && view.FollowUpCount >= p.limit {
		return Result{
			Stage:         session.StagePreFeedback,
			FollowUpCount: view.FollowUpCount,
		}, nil
	}

	var prior []llm.Turn
	if !spec.freshContext {
		prior = toLLMTurns(view.History)
	}

	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	conv := p.client.StartConversation(prior)
	reply, err := conv.SendMessage(callCtx, spec.instruction(jobTitle, view.Answers), spec.tokens(p.tokens))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	next, followUps := spec.transition(view.FollowUpCount, p.limit)
	return Result{
		Reply:         reply,
		Stage:         next,
		FollowUpCount: followUps,
		ModelCalled:   true,
	}, nil
}

func toLLMTurns(history []session.Turn) []llm.Turn {
	out := make([]llm.Turn, len(history))
	for i, t := range history {
		out[i] = llm.Turn{Role: llm.Role(t.Role), Text: t.Text}
	}
	return out
}
