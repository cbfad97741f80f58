// Package interview implements the scripted mock-interview turn machine:
// a fixed stage table, a turn processor that makes exactly one LLM call
// per turn, and an engine that owns session commit semantics.
package interview

import (
	"fmt"
	"strings"

	"github.com/Realist2022/Interview-AI-Testimator-backend/internal/config"
	"github.com/Realist2022/Interview-AI-Testimator-backend/internal/session"
)

// stageSpec is one row of the interview script: how to build the
// instruction for the model, how long its reply may be, and which stage
// follows a successful reply.
type stageSpec struct {
	// instruction renders the prompt sent to the model for this stage.
	instruction func(jobTitle string, answers []string) string

	// tokens picks the reply-length cap for this stage.
	tokens func(t config.OutputTokens) int

	// freshContext marks stages whose model call starts with no replayed
	// history. Only the opening greeting qualifies; every later stage
	// replays the entire accumulated history, so cost grows linearly
	// with interview length.
	freshContext bool

	// transition returns the successor stage and follow-up count after a
	// successful reply.
	transition func(followUps, limit int) (session.Stage, int)
}

var stages = map[session.Stage]stageSpec{
	session.StageInitial: {
		instruction: func(jobTitle string, _ []string) string {
			return fmt.Sprintf(`You are an AI interviewer for a job titled %q. Your goal is to conduct a mock interview.
Begin by asking the candidate to "Tell me about yourself."
Keep your response concise and professional.`, jobTitle)
		},
		tokens:       func(t config.OutputTokens) int { return t.Opening },
		freshContext: true,
		transition: func(_, _ int) (session.Stage, int) {
			return session.StageAwaitingCoreQuestion, 0
		},
	},

	session.StageAwaitingCoreQuestion: {
		instruction: func(jobTitle string, _ []string) string {
			return fmt.Sprintf(`You are an AI interviewer for a job titled %q.
The candidate has just introduced themselves. Greet them by name if they mentioned one,
then ask one interview question relevant to the role.
Keep your response concise.`, jobTitle)
		},
		tokens: func(t config.OutputTokens) int { return t.Question },
		transition: func(_, _ int) (session.Stage, int) {
			return session.StageAskingFollowUps, 0
		},
	},

	session.StageAskingFollowUps: {
		instruction: func(jobTitle string, _ []string) string {
			return fmt.Sprintf(`You are an AI interviewer for a job titled %q.
Based on the previous conversation and the candidate's last response, ask one relevant follow-up question.
Ensure your question is typical for a job interview.
Keep your response concise.`, jobTitle)
		},
		tokens: func(t config.OutputTokens) int { return t.Question },
		transition: func(followUps, limit int) (session.Stage, int) {
			followUps++
			if followUps >= limit {
				return session.StagePreFeedback, followUps
			}
			return session.StageAskingFollowUps, followUps
		},
	},

	session.StagePreFeedback: {
		instruction: func(_ string, _ []string) string {
			return `You are an AI interviewer. The candidate has just completed answering all interview questions.
Acknowledge their final response briefly and indicate that you will now provide feedback.
Keep your response concise and professional.`
		},
		tokens: func(t config.OutputTokens) int { return t.Ack },
		transition: func(followUps, _ int) (session.Stage, int) {
			return session.StageGeneratingFeedback, followUps
		},
	},

	session.StageGeneratingFeedback: {
		instruction: func(jobTitle string, answers []string) string {
			return fmt.Sprintf(`You are an AI interviewer for a job titled %q.
The mock interview is complete. Review the candidate's answers to the questions. Here are the collected answers:
%s
Provide constructive feedback on their answers and overall interview performance.
Keep your feedback concise and professional, and less than two paragraphs.`, jobTitle, numberedAnswers(answers))
		},
		tokens: func(t config.OutputTokens) int { return t.Feedback },
		transition: func(followUps, _ int) (session.Stage, int) {
			return session.StageComplete, followUps
		},
	},

	session.StageComplete: {
		instruction: func(_ string, _ []string) string {
			return `You are an AI interviewer. The mock interview is now complete and feedback has been provided.
Offer a brief, polite closing statement.`
		},
		tokens: func(t config.OutputTokens) int { return t.Closing },
		transition: func(followUps, _ int) (session.Stage, int) {
			// Terminal: repeated calls re-issue a closing statement.
			return session.StageComplete, followUps
		},
	},
}

// numberedAnswers renders the collected answers as a numbered listing,
// starting at 1, one answer per line.
func numberedAnswers(answers []string) string {
	if len(answers) == 0 {
		return "(no answers were recorded)"
	}
	lines := make([]string, len(answers))
	for i, ans := range answers {
		lines[i] = fmt.Sprintf("Question %d Answer: %s", i+1, ans)
	}
	return strings.Join(lines, "\n")
}
