package cli

import (
	"github.com/spf13/cobra"

	"github.com/kirillkom/resume-fraud-screener/internal/config"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Print the effective fraud policy as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		policy, err := config.LoadFraudPolicy(configFromContext(cmd.Context()))
		if err != nil {
			return err
		}
		out, err := config.MarshalPolicy(policy)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}
