package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat \"Job Title\"",
	Short: "Practice an interview in the terminal",
	Long: `Run a mock interview against a Testimator server. Example:

  testimator chat "Backend Engineer"

Type your answers at the prompt. Ctrl+C or an empty line quits.`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

type turnRequest struct {
	SessionID    string `json:"sessionId"`
	JobTitle     string `json:"jobTitle"`
	UserResponse string `json:"userResponse,omitempty"`
}

type turnResponse struct {
	Response       string `json:"response"`
	InterviewStage string `json:"interviewStage"`
	Error          string `json:"error,omitempty"`
}

func runChat(cmd *cobra.Command, args []string) error {
	jobTitle := strings.TrimSpace(args[0])
	if jobTitle == "" {
		return fmt.Errorf("job title must not be empty")
	}

	sessionID := "cli-" + uuid.New().String()[:8]
	client := &http.Client{Timeout: 2 * time.Minute}

	fmt.Printf("Mock interview for: %s\n", jobTitle)
	fmt.Printf("Session: %s\n\n", sessionID)

	// Kick off the interview.
	resp, err := sendTurn(client, sessionID, jobTitle, "START_INTERVIEW")
	if err != nil {
		return err
	}
	fmt.Printf("Interviewer: %s\n\n", resp.Response)

	reader := bufio.NewReader(os.Stdin)
	for resp.InterviewStage != "interview_complete" {
		fmt.Print("You: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			fmt.Println("Interview abandoned.")
			return nil
		}

		resp, err = sendTurn(client, sessionID, jobTitle, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v (your answer was not lost, try again)\n", err)
			continue
		}
		fmt.Printf("\nInterviewer: %s\n\n", resp.Response)
	}

	fmt.Println("Interview complete. Good luck out there!")
	return nil
}

func sendTurn(client *http.Client, sessionID, jobTitle, userResponse string) (*turnResponse, error) {
	body, err := json.Marshal(turnRequest{
		SessionID:    sessionID,
		JobTitle:     jobTitle,
		UserResponse: userResponse,
	})
	if err != nil {
		return nil, err
	}

	httpResp, err := client.Post(serverURL+"/api/testimator", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("reaching server at %s: %w", serverURL, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	var resp turnResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unexpected response (HTTP %d): %s", httpResp.StatusCode, data)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned HTTP %d: %s", httpResp.StatusCode, resp.Error)
	}
	return &resp, nil
}
