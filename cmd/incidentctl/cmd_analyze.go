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

	"github.com/spf13/cobra"

	"github.com/opsvista/incident-analyzer/internal/models"
	"github.com/opsvista/incident-analyzer/internal/render"
	"github.com/opsvista/incident-analyzer/internal/stream"
)

var analyzeFlags struct {
	server         string
	incidentID     string
	logsPath       string
	streaming      bool
	skipEnrichment bool
	timeout        time.Duration
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [logs-file]",
	Short: "Analyze incident logs and print the structured report",
	Long: `Analyze submits incident logs to the analyzer server and prints the
resulting report as JSON. Logs are read from the positional file argument,
the --logs flag, or stdin when neither is given.

With --stream the model's narration is printed to stderr as it arrives and
the final report to stdout once complete.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.server, "server", serverDefault(), "Analyzer server base URL (default: $INCIDENTCTL_SERVER or http://localhost:8080)")
	f.StringVar(&analyzeFlags.incidentID, "incident-id", "", "Incident identifier attached to the analysis")
	f.StringVarP(&analyzeFlags.logsPath, "logs", "f", "", "Path to the incident log file (default: stdin)")
	f.BoolVar(&analyzeFlags.streaming, "stream", false, "Stream narration while the analysis runs")
	f.BoolVar(&analyzeFlags.skipEnrichment, "skip-enrichment", false, "Skip the external context lookup")
	f.DurationVar(&analyzeFlags.timeout, "timeout", 3*time.Minute, "Overall request timeout")
}

func serverDefault() string {
	if v := os.Getenv("INCIDENTCTL_SERVER"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	logsPath := analyzeFlags.logsPath
	if logsPath == "" && len(args) > 0 {
		logsPath = args[0]
	}

	logs, err := readLogs(logsPath)
	if err != nil {
		return err
	}
	if strings.TrimSpace(logs) == "" {
		return fmt.Errorf("no incident logs provided")
	}

	req := models.AnalysisRequest{
		IncidentID:     analyzeFlags.incidentID,
		Logs:           logs,
		SkipEnrichment: analyzeFlags.skipEnrichment,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: analyzeFlags.timeout}
	if analyzeFlags.streaming {
		return streamAnalysis(cmd, client, body)
	}
	return syncAnalysis(cmd, client, body)
}

func readLogs(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read logs: %w", err)
	}
	return string(data), nil
}

func syncAnalysis(cmd *cobra.Command, client *http.Client, body []byte) error {
	resp, err := client.Post(analyzeFlags.server+"/api/v1/analyze", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("analyze request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("analyze failed (%s): %s", resp.Status, strings.TrimSpace(string(data)))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		cmd.Println(string(data))
		return nil
	}
	cmd.Println(pretty.String())
	return nil
}

func streamAnalysis(cmd *cobra.Command, client *http.Client, body []byte) error {
	resp, err := client.Post(analyzeFlags.server+"/api/v1/analyze/stream", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("stream request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("stream failed (%s): %s", resp.Status, strings.TrimSpace(string(data)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var event stream.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			continue
		}
		switch event.Type {
		case stream.EventToken:
			fmt.Fprint(cmd.ErrOrStderr(), event.Text)
		case stream.EventFinal:
			fmt.Fprintln(cmd.ErrOrStderr())
			if event.Report == nil {
				return fmt.Errorf("final event carried no report")
			}
			labels := render.Labels(*event.Report)
			fmt.Fprintf(cmd.ErrOrStderr(), "%s, %s, blast radius %s\n", labels.Severity, labels.Impact, labels.BlastRadius)
			out, err := json.MarshalIndent(event.Report, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(out))
			return nil
		case stream.EventError:
			fmt.Fprintln(cmd.ErrOrStderr())
			return fmt.Errorf("analysis failed: %s", event.Message)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return fmt.Errorf("stream ended without a terminal event")
}
