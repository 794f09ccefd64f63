package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsvista/incident-analyzer/internal/models"
	"github.com/opsvista/incident-analyzer/internal/render"
)

var renderFlags struct {
	reportPath string
}

var renderCmd = &cobra.Command{
	Use:   "render [report-file]",
	Short: "Print presentation labels for a stored report JSON",
	Long: `Render reads a report JSON file (either a bare report or the analyze
endpoint's response envelope) and prints the severity tier, business impact,
and blast radius labels.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderFlags.reportPath, "report", "f", "", "Path to the report JSON file (default: stdin)")
}

func runRender(cmd *cobra.Command, args []string) error {
	path := renderFlags.reportPath
	if path == "" && len(args) > 0 {
		path = args[0]
	}

	data, err := readReport(path)
	if err != nil {
		return err
	}

	report, err := decodeReport(data)
	if err != nil {
		return err
	}

	labels := render.Labels(report)
	cmd.Printf("severity:     %s\n", labels.Severity)
	cmd.Printf("impact:       %s\n", labels.Impact)
	cmd.Printf("blast radius: %s\n", labels.BlastRadius)
	return nil
}

func readReport(path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	return data, nil
}

// decodeReport accepts either the analyze response envelope or a bare report.
func decodeReport(data []byte) (models.IncidentReport, error) {
	var envelope struct {
		Report *models.IncidentReport `json:"report"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Report != nil {
		return *envelope.Report, nil
	}

	var report models.IncidentReport
	if err := json.Unmarshal(data, &report); err != nil {
		return models.IncidentReport{}, fmt.Errorf("parse report: %w", err)
	}
	return report, nil
}
