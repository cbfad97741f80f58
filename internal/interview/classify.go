package interview

import (
	"strings"

	"github.com/Realist2022/Interview-AI-Testimator-backend/internal/session"
)

// IsAnswer reports whether a user utterance should be recorded as an
// answer to an interview question. historyLen is the history length
// before the utterance is appended.
//
// An utterance qualifies when it is the first substantive reply right
// after the opening greeting (history holds exactly the session-start
// marker and the greeting), or when it arrives during the follow-up
// stage. Session-start signals and blank input never qualify; neither do
// utterances arriving once the question stages are over, so the feedback
// stage references exactly the question responses.
func IsAnswer(stage session.Stage, historyLen int, utterance string) bool {
	trimmed := strings.TrimSpace(utterance)
	if trimmed == "" || trimmed == session.StartSentinel || trimmed == session.StartMarker {
		return false
	}
	switch stage {
	case session.StageAskingFollowUps:
		return true
	case session.StageAwaitingCoreQuestion:
		return historyLen == 2
	}
	return false
}
