package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/KaramelBytes/readmegen-cli/internal/workflow"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	repoFetchJSON  bool
	repoFetchQuiet bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <github-url>",
	Short: "Look up a GitHub repository and print its summary",
	Example: `  readmegen fetch https://github.com/golang/go
  readmegen fetch github.com/spf13/cobra --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provided := map[string]bool{}
		cmd.Flags().Visit(func(fl *pflag.Flag) { provided[fl.Name] = true })
		if !provided["json"] {
			repoFetchJSON = false
		}
		if !provided["quiet"] {
			repoFetchQuiet = false
		}

		c := effectiveConfig()
		p := printerFor(cmd, repoFetchJSON, repoFetchQuiet)
		ctl := workflow.NewController(newGitHubClient(c), nil,
			workflow.WithNotifier(statusNotifier{p}),
			workflow.WithLogger(slog.Default()),
		)
		if err := ctl.FetchRepository(cmd.Context(), args[0]); err != nil {
			return err
		}
		repo := ctl.State().Repository

		if repoFetchJSON {
			b, err := json.MarshalIndent(repo, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal repository: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		}
		p.RepoCard(repo)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().BoolVar(&repoFetchJSON, "json", false, "print the repository record as JSON")
	fetchCmd.Flags().BoolVar(&repoFetchQuiet, "quiet", false, "suppress status lines")
}
