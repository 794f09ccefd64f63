package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsvista/incident-analyzer/internal/models"
)

var restartFlags struct {
	server  string
	timeout time.Duration
}

var restartCmd = &cobra.Command{
	Use:   "restart <service>",
	Short: "Request a restart of an allow-listed service",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestart,
}

func init() {
	f := restartCmd.Flags()
	f.StringVar(&restartFlags.server, "server", serverDefault(), "Analyzer server base URL (default: $INCIDENTCTL_SERVER or http://localhost:8080)")
	f.DurationVar(&restartFlags.timeout, "timeout", 30*time.Second, "Request timeout")
}

func runRestart(cmd *cobra.Command, args []string) error {
	body, err := json.Marshal(models.RestartRequest{Service: args[0]})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: restartFlags.timeout}
	resp, err := client.Post(restartFlags.server+"/api/v1/actions/restart", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("restart request: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("restart rejected (%s): %s", resp.Status, strings.TrimSpace(string(data)))
	}
	cmd.Printf("restart accepted for %s\n", args[0])
	return nil
}
