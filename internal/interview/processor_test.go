package interview_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/Realist2022/Interview-AI-Testimator-backend/internal/config"
	"github.com/Realist2022/Interview-AI-Testimator-backend/internal/interview"
	"github.com/Realist2022/Interview-AI-Testimator-backend/internal/session"
	"github.com/Realist2022/Interview-AI-Testimator-backend/llm"
)

// ---------------------------------------------------------------------------
// Fake collaborator
// ---------------------------------------------------------------------------

// llmCall records the arguments of one SendMessage invocation.
type llmCall struct {
	prior       []llm.Turn
	instruction string
	maxTokens   int
}

// fakeClient is a scripted test double for the LLM collaborator. It
// records every call and answers from a queue of canned replies
// (defaulting to "ok" when the queue is empty).
type fakeClient struct {
	mu      sync.Mutex
	calls   []llmCall
	replies []string
	err     error
}

func (f *fakeClient) StartConversation(prior []llm.Turn) llm.Conversation {
	return &fakeConversation{client: f, prior: prior}
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeClient) lastCall(t *testing.T) llmCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("no collaborator calls were made")
	}
	return f.calls[len(f.calls)-1]
}

type fakeConversation struct {
	client *fakeClient
	prior  []llm.Turn
}

func (c *fakeConversation) SendMessage(_ context.Context, instruction string, maxOutputTokens int) (string, error) {
	f := c.client
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, llmCall{prior: c.prior, instruction: instruction, maxTokens: maxOutputTokens})
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "ok", nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

var testTokens = config.OutputTokens{Opening: 150, Question: 200, Ack: 100, Feedback: 500, Closing: 50}

func newProcessor(client llm.Client, limit int) *interview.Processor {
	return interview.NewProcessor(client, limit, testTokens, 0)
}

// ---------------------------------------------------------------------------
// Stage-by-stage behavior
// ---------------------------------------------------------------------------

func TestProcessTurn_Initial(t *testing.T) {
	fake := &fakeClient{replies: []string{"Tell me about yourself."}}
	p := newProcessor(fake, 3)

	res, err := p.ProcessTurn(context.Background(), interview.View{Stage: session.StageInitial}, "Backend Engineer")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}

	if res.Reply != "Tell me about yourself." {
		t.Errorf("reply = %q", res.Reply)
	}
	if res.Stage != session.StageAwaitingCoreQuestion {
		t.Errorf("next stage = %q; want %q", res.Stage, session.StageAwaitingCoreQuestion)
	}
	if res.FollowUpCount != 0 {
		t.Errorf("followUpCount = %d; want 0", res.FollowUpCount)
	}
	if !res.ModelCalled {
		t.Error("ModelCalled = false; want true")
	}

	call := fake.lastCall(t)
	if len(call.prior) != 0 {
		t.Errorf("opening call replayed %d prior turns; want 0", len(call.prior))
	}
	if !strings.Contains(call.instruction, `"Backend Engineer"`) {
		t.Errorf("instruction should embed the job title, got %q", call.instruction)
	}
	if !strings.Contains(call.instruction, "Tell me about yourself") {
		t.Errorf("instruction should ask for an introduction, got %q", call.instruction)
	}
	if call.maxTokens != testTokens.Opening {
		t.Errorf("maxTokens = %d; want %d", call.maxTokens, testTokens.Opening)
	}
}

func TestProcessTurn_AwaitingCoreQuestion_ReplaysHistory(t *testing.T) {
	fake := &fakeClient{}
	p := newProcessor(fake, 3)

	history := []session.Turn{
		{Role: session.RoleUser, Text: session.StartMarker},
		{Role: session.RoleModel, Text: "Tell me about yourself."},
		{Role: session.RoleUser, Text: "I have 5 years of experience"},
	}
	view := interview.View{
		Stage:   session.StageAwaitingCoreQuestion,
		History: history,
		Answers: []string{"I have 5 years of experience"},
	}

	res, err := p.ProcessTurn(context.Background(), view, "Backend Engineer")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if res.Stage != session.StageAskingFollowUps {
		t.Errorf("next stage = %q; want %q", res.Stage, session.StageAskingFollowUps)
	}
	if res.FollowUpCount != 0 {
		t.Errorf("followUpCount = %d; want reset to 0", res.FollowUpCount)
	}

	call := fake.lastCall(t)
	if len(call.prior) != len(history) {
		t.Errorf("replayed %d prior turns; want the full history (%d)", len(call.prior), len(history))
	}
	if call.maxTokens != testTokens.Question {
		t.Errorf("maxTokens = %d; want %d", call.maxTokens, testTokens.Question)
	}
}

func TestProcessTurn_FollowUps_IncrementAndStay(t *testing.T) {
	fake := &fakeClient{}
	p := newProcessor(fake, 3)

	view := interview.View{Stage: session.StageAskingFollowUps, FollowUpCount: 0}
	res, err := p.ProcessTurn(context.Background(), view, "Backend Engineer")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if res.Stage != session.StageAskingFollowUps {
		t.Errorf("next stage = %q; want self-loop", res.Stage)
	}
	if res.FollowUpCount != 1 {
		t.Errorf("followUpCount = %d; want 1", res.FollowUpCount)
	}
}

func TestProcessTurn_FollowUps_LimitReachedAfterIncrement(t *testing.T) {
	fake := &fakeClient{}
	p := newProcessor(fake, 2)

	view := interview.View{Stage: session.StageAskingFollowUps, FollowUpCount: 1}
	res, err := p.ProcessTurn(context.Background(), view, "Backend Engineer")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if res.Stage != session.StagePreFeedback {
		t.Errorf("next stage = %q; want %q", res.Stage, session.StagePreFeedback)
	}
	if res.FollowUpCount != 2 {
		t.Errorf("followUpCount = %d; want 2", res.FollowUpCount)
	}
	if !res.ModelCalled {
		t.Error("the limit-reaching follow-up should still call the model")
	}
}

func TestProcessTurn_FollowUps_AtLimitGuardSkipsModel(t *testing.T) {
	fake := &fakeClient{}
	p := newProcessor(fake, 2)

	view := interview.View{Stage: session.StageAskingFollowUps, FollowUpCount: 2}
	res, err := p.ProcessTurn(context.Background(), view, "Backend Engineer")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if res.Stage != session.StagePreFeedback {
		t.Errorf("next stage = %q; want %q", res.Stage, session.StagePreFeedback)
	}
	if res.ModelCalled {
		t.Error("ModelCalled = true; the at-limit guard must not call the model")
	}
	if res.Reply != "" {
		t.Errorf("reply = %q; want empty without a model call", res.Reply)
	}
	if fake.callCount() != 0 {
		t.Errorf("collaborator was called %d times; want 0", fake.callCount())
	}
}

func TestProcessTurn_PreFeedback(t *testing.T) {
	fake := &fakeClient{}
	p := newProcessor(fake, 3)

	view := interview.View{Stage: session.StagePreFeedback, FollowUpCount: 3}
	res, err := p.ProcessTurn(context.Background(), view, "Backend Engineer")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if res.Stage != session.StageGeneratingFeedback {
		t.Errorf("next stage = %q; want %q", res.Stage, session.StageGeneratingFeedback)
	}
	if call := fake.lastCall(t); call.maxTokens != testTokens.Ack {
		t.Errorf("maxTokens = %d; want %d", call.maxTokens, testTokens.Ack)
	}
}

func TestProcessTurn_Feedback_NumbersEveryAnswerInOrder(t *testing.T) {
	fake := &fakeClient{}
	p := newProcessor(fake, 3)

	answers := []string{"five years in Go", "led a migration", "mentored juniors"}
	view := interview.View{
		Stage:   session.StageGeneratingFeedback,
		Answers: answers,
	}

	res, err := p.ProcessTurn(context.Background(), view, "Backend Engineer")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if res.Stage != session.StageComplete {
		t.Errorf("next stage = %q; want %q", res.Stage, session.StageComplete)
	}

	call := fake.lastCall(t)
	lastIdx := -1
	for i, ans := range answers {
		marker := fmt.Sprintf("Question %d Answer: %s", i+1, ans)
		idx := strings.Index(call.instruction, marker)
		if idx < 0 {
			t.Errorf("instruction is missing %q", marker)
			continue
		}
		if idx < lastIdx {
			t.Errorf("answer %d appears out of order", i+1)
		}
		lastIdx = idx
	}
	if call.maxTokens != testTokens.Feedback {
		t.Errorf("maxTokens = %d; want %d", call.maxTokens, testTokens.Feedback)
	}
}

func TestProcessTurn_Complete_IsTerminal(t *testing.T) {
	fake := &fakeClient{replies: []string{"Thanks for your time!", "Goodbye again!"}}
	p := newProcessor(fake, 3)

	view := interview.View{
		Stage: session.StageComplete,
		History: []session.Turn{
			{Role: session.RoleUser, Text: session.StartMarker},
			{Role: session.RoleModel, Text: "feedback text"},
		},
	}

	for i := 0; i < 2; i++ {
		res, err := p.ProcessTurn(context.Background(), view, "Backend Engineer")
		if err != nil {
			t.Fatalf("ProcessTurn #%d: %v", i+1, err)
		}
		if res.Stage != session.StageComplete {
			t.Errorf("call %d: stage = %q; want terminal %q", i+1, res.Stage, session.StageComplete)
		}
	}

	// Repeated closings still replay the full history as context.
	if call := fake.lastCall(t); len(call.prior) != 2 {
		t.Errorf("closing call replayed %d turns; want 2", len(call.prior))
	}
}

// ---------------------------------------------------------------------------
// Failure handling
// ---------------------------------------------------------------------------

func TestProcessTurn_GenerationFailure(t *testing.T) {
	fake := &fakeClient{err: errors.New("quota exceeded")}
	p := newProcessor(fake, 3)

	_, err := p.ProcessTurn(context.Background(), interview.View{Stage: session.StageInitial}, "Backend Engineer")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, interview.ErrGeneration) {
		t.Errorf("error should wrap ErrGeneration, got %v", err)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("error should carry the provider message, got %q", err.Error())
	}
}

func TestProcessTurn_UnknownStage(t *testing.T) {
	fake := &fakeClient{}
	p := newProcessor(fake, 3)

	_, err := p.ProcessTurn(context.Background(), interview.View{Stage: "limbo"}, "Backend Engineer")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, interview.ErrUnknownStage) {
		t.Errorf("error should wrap ErrUnknownStage, got %v", err)
	}
	if fake.callCount() != 0 {
		t.Errorf("collaborator was called %d times for an unknown stage; want 0", fake.callCount())
	}
}
