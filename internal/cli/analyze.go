package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/resume-fraud-screener/internal/bootstrap"
	"github.com/kirillkom/resume-fraud-screener/internal/core/domain"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [resume-file]",
	Short: "Analyze a resume PDF or text file",
	Long: `Analyze runs every fraud detector over the file and prints the report.
Files starting with the %PDF- marker are parsed as PDF, anything else is
treated as plain text.

With --fail-on the command exits non-zero when the risk level reaches the
given level, which makes it usable as a gate in batch scripts.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if analyzeFlags.failOn == "" {
			return nil
		}
		if riskRank(domain.RiskLevel(analyzeFlags.failOn)) == 0 {
			return fmt.Errorf("--fail-on must be low, medium or high, got %q", analyzeFlags.failOn)
		}
		return nil
	},
	RunE: runAnalyze,
}

var analyzeFlags struct {
	output string
	failOn string
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFlags.output, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.failOn, "fail-on", "", "Exit with an error when risk level is at least low, medium or high")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	analyzer, err := bootstrap.NewAnalyzer(configFromContext(ctx))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read resume: %w", err)
	}

	var report *domain.FraudReport
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		report, err = analyzer.AnalyzePDF(ctx, bytes.NewReader(data))
	} else {
		report, err = analyzer.AnalyzeText(ctx, string(data))
	}
	if err != nil {
		return fmt.Errorf("analyze %s: %w", args[0], err)
	}

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	payload = append(payload, '\n')
	if analyzeFlags.output != "" {
		if err := os.WriteFile(analyzeFlags.output, payload, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	} else if _, err := cmd.OutOrStdout().Write(payload); err != nil {
		return err
	}

	if analyzeFlags.failOn != "" && riskRank(report.RiskLevel) >= riskRank(domain.RiskLevel(analyzeFlags.failOn)) {
		return fmt.Errorf("risk level %s reaches --fail-on %s", report.RiskLevel, analyzeFlags.failOn)
	}
	return nil
}

// riskRank orders risk levels; unknown ranks below low so it never trips --fail-on.
func riskRank(level domain.RiskLevel) int {
	switch level {
	case domain.RiskLow:
		return 1
	case domain.RiskMedium:
		return 2
	case domain.RiskHigh:
		return 3
	default:
		return 0
	}
}
