package cli

import (
	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <thread-id> <additional-details>",
	Short: "Answer a clarifying question and continue triage",
	Long: `Continue a suspended triage session. The thread ID comes from the
interrupt event of an earlier submit.

Example:
  triage resume 4f6b2c1a-... "fails on iOS Safari after the 2.3 update"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return postStream("/triage/resume", map[string]string{
			"thread_id":          args[0],
			"additional_details": args[1],
		})
	},
}
