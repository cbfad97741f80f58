package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Realist2022/Interview-AI-Testimator-backend/llm"
)

// newTestClient returns a Client pointed at a test server that invokes
// handler for every request.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("test-key", "test-model", 0).WithBaseURL(srv.URL)
}

func candidateResponse(text string) string {
	return `{"candidates":[{"content":{"role":"model","parts":[{"text":` +
		mustJSON(text) + `}]}}]}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// ---------------------------------------------------------------------------
// Request shape
// ---------------------------------------------------------------------------

func TestSendMessage_RequestShape(t *testing.T) {
	var captured struct {
		path string
		body request
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &captured.body); err != nil {
			t.Errorf("request body is not valid JSON: %v", err)
		}
		io.WriteString(w, candidateResponse("hello"))
	})

	conv := c.StartConversation([]llm.Turn{
		{Role: llm.RoleUser, Text: "Interview session started."},
		{Role: llm.RoleModel, Text: "Tell me about yourself."},
	})

	reply, err := conv.SendMessage(context.Background(), "ask a follow-up", 200)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if reply != "hello" {
		t.Errorf("reply = %q; want %q", reply, "hello")
	}

	if !strings.HasSuffix(captured.path, "/models/test-model:generateContent") {
		t.Errorf("request path = %q; want .../models/test-model:generateContent", captured.path)
	}

	// Prior turns plus the instruction itself.
	if len(captured.body.Contents) != 3 {
		t.Fatalf("got %d contents; want 3", len(captured.body.Contents))
	}
	if captured.body.Contents[1].Role != "model" {
		t.Errorf("second content role = %q; want %q", captured.body.Contents[1].Role, "model")
	}
	last := captured.body.Contents[2]
	if last.Role != "user" || last.Parts[0].Text != "ask a follow-up" {
		t.Errorf("last content = %+v; want user instruction", last)
	}

	if captured.body.GenerationConfig == nil || captured.body.GenerationConfig.MaxOutputTokens != 200 {
		t.Errorf("generationConfig = %+v; want maxOutputTokens 200", captured.body.GenerationConfig)
	}
}

func TestSendMessage_OmitsGenerationConfigWhenUncapped(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if strings.Contains(string(raw), "generationConfig") {
			t.Error("request should not include generationConfig when cap is 0")
		}
		io.WriteString(w, candidateResponse("ok"))
	})

	conv := c.StartConversation(nil)
	if _, err := conv.SendMessage(context.Background(), "hi", 0); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Failure shapes
// ---------------------------------------------------------------------------

func TestSendMessage_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"quota exceeded"}}`)
	})

	conv := c.StartConversation(nil)
	_, err := conv.SendMessage(context.Background(), "hi", 100)
	if err == nil {
		t.Fatal("expected error for non-200 status, got nil")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error should mention status code, got %q", err.Error())
	}
}

func TestSendMessage_EmptyCandidates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"candidates":[]}`)
	})

	conv := c.StartConversation(nil)
	_, err := conv.SendMessage(context.Background(), "hi", 100)
	if err == nil {
		t.Fatal("expected error for empty candidates, got nil")
	}
}

func TestSendMessage_JoinsMultipleParts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"first"},{"text":"second"}]}}]}`)
	})

	conv := c.StartConversation(nil)
	reply, err := conv.SendMessage(context.Background(), "hi", 100)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if reply != "first\nsecond" {
		t.Errorf("reply = %q; want parts joined with newline", reply)
	}
}
