// Package cli provides the command-line client for the triage server.
package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Support ticket triage client",
	Long: `Triage submits support tickets to the triage server and relays the
progress event stream. When the server asks a clarifying question, answer it
with "triage resume <thread-id> <details>".`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8000", "triage server base URL")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(healthCmd)
}

// postStream sends a JSON body and copies the NDJSON event stream to stdout
// line by line as it arrives.
func postStream(path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Minute}
	resp, err := client.Post(serverURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %s: %s", resp.Status, bytes.TrimSpace(data))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fmt.Fprintln(os.Stdout, scanner.Text())
	}
	return scanner.Err()
}
