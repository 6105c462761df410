package cli

import (
	"github.com/spf13/cobra"
)

var submitCmd = &cobra.Command{
	Use:   "submit <description>",
	Short: "Submit a ticket and stream triage events",
	Long: `Submit a support ticket description and stream progress events until the
workflow completes or suspends with a clarifying question.

Examples:
  triage submit "Getting error 500 on mobile checkout"
  triage submit "Dashboard is very slow since this morning"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return postStream("/triage/stream", map[string]string{
			"description": args[0],
		})
	},
}
