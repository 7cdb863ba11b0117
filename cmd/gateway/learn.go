package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"codelens/internal/gateway/service/learning"
	"codelens/internal/util/jsonutil"
)

func newLearnCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "learn <path>",
		Short: "Analyze one project and print the analysis as JSON",
		Long: `Run a single learning pass over the project at path. Progress goes to
stderr and the analysis JSON to stdout. The analysis is also saved to the
project store like a run started over the API.

Examples:
  # Offline, without a model key
  LLM_FAKE=true gateway learn ./my-project`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, log, err := bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck
			defer a.Close()

			stderr := cmd.ErrOrStderr()
			analysis, err := a.Learn(cmd.Context(), args[0], func(st learning.Status) {
				fmt.Fprintf(stderr, "[%3d%%] %s: %s\n", st.Progress, st.State, st.Message)
			})
			if err != nil {
				return err
			}
			out, err := jsonutil.MarshalNoEscapeIndent(analysis, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}
