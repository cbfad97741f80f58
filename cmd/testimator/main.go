// Testimator
//
// An AI mock-interview backend. Give it a job title, get a five-stage
// practice interview with structured feedback at the end.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "testimator",
	Short: "Testimator - AI Mock Interviewer",
	Long: `Testimator runs scripted mock interviews against an LLM interviewer.

  testimator config setup       Set up API keys (first time)
  testimator serve              Start the HTTP server
  testimator chat "Job Title"   Practice an interview in the terminal`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("TESTIMATOR_SERVER", "http://localhost:3000"), "Testimator server URL")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
