package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kirillkom/resume-fraud-screener/internal/config"
)

type configKeyType struct{}

var configKey = configKeyType{}

var rootCmd = &cobra.Command{
	Use:   "fraudscan",
	Short: "Screen resumes for hidden text, keyword stuffing and other manipulation",
	Long: `fraudscan runs the resume fraud detectors against a local PDF or text file
and prints the fraud report as JSON. Thresholds come from the same environment
variables and policy files as the API service.`,
	SilenceUsage: true,
}

// Execute runs the CLI with cfg available to every subcommand.
func Execute(ctx context.Context, cfg config.Config) error {
	rootCmd.SetContext(context.WithValue(ctx, configKey, cfg))
	return rootCmd.Execute()
}

func configFromContext(ctx context.Context) config.Config {
	if cfg, ok := ctx.Value(configKey).(config.Config); ok {
		return cfg
	}
	return config.Load()
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(policyCmd)
}
