package cmd

import (
	"context"
	"crypto/sha1"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/readmegen-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/readmegen-cli/internal/config"
	"github.com/KaramelBytes/readmegen-cli/internal/readme"
	"github.com/KaramelBytes/readmegen-cli/internal/utils"
	"github.com/KaramelBytes/readmegen-cli/internal/workflow"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	defaultGenMaxTokens = 4096
	defaultGenTemp      = 0.7
)

var (
	genEmail       string
	genModel       string
	genModelPreset string
	genProvider    string
	genMaxTokens   int
	genTemp        float64
	genDryRun      bool
	genQuiet       bool
	genJSON        bool
	genPrintPrompt bool
	genBudgetLimit float64
	genOutputPath  string
	genCopy        bool
	genTimeoutSec  int
)

var generateCmd = &cobra.Command{
	Use:   "generate <github-url>",
	Short: "Generate a README.md for a GitHub repository",
	Example: `  readmegen generate https://github.com/acme/widget
  readmegen generate github.com/acme/widget --email me@example.com --copy
  readmegen generate github.com/acme/widget --dry-run
  readmegen generate github.com/acme/widget --provider openrouter --model-preset balanced
  readmegen generate github.com/acme/widget --output docs/README.md --budget-limit 0.01`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Ensure flags that can carry over between invocations are reset to defaults
		// unless explicitly provided in THIS run. Use Visit to detect set flags in this parse.
		if f := cmd.Flags(); f != nil {
			provided := map[string]bool{}
			f.Visit(func(fl *pflag.Flag) {
				provided[fl.Name] = true
			})
			resetUnset(provided)
		}
		if genJSON {
			genQuiet = true
		}

		c := effectiveConfig()
		p := printerFor(cmd, genJSON, genQuiet)
		out := cmd.OutOrStdout()

		provider := resolveProvider(c, genProvider)
		model := genModel
		if genModelPreset != "" && model == "" {
			prov, name, err := applyModelPreset(genModelPreset, provider)
			if err != nil {
				return err
			}
			provider, model = prov, name
			p.Info("Selected model by tier preset (%s): %s", genModelPreset, model)
		}
		model = selectModel(c, model, provider)

		newRuntime, err := buildRuntime(c, provider)
		if err != nil {
			return err
		}
		gen := readme.NewGenerator(newRuntime, readme.Options{
			Model:       model,
			MaxTokens:   genMaxTokens,
			Temperature: genTemp,
		}).WithLogger(slog.Default())

		ctl := workflow.NewController(newGitHubClient(c), gen,
			workflow.WithClipboard(workflow.SystemClipboard{}),
			workflow.WithNotifier(statusNotifier{p}),
			workflow.WithLogger(slog.Default()),
		)

		if err := ctl.FetchRepository(cmd.Context(), args[0]); err != nil {
			return err
		}
		repo := ctl.State().Repository
		if !genQuiet {
			p.RepoCard(repo)
		}

		prompt := readme.BuildPrompt(repo, genEmail)
		tokens := utils.CountTokens(prompt)
		p.Info("Tokens: prompt≈%d, max-tokens=%d", tokens, genMaxTokens)

		var estCost float64
		if mi, ok := ai.LookupModel(model); ok {
			slog.Debug("model metadata", "model", mi.Name, "context_tokens", mi.ContextTokens, "prompt_tokens", tokens, "max_tokens", genMaxTokens)
			if tokens+genMaxTokens > mi.ContextTokens {
				p.Warn(fmt.Sprintf("Prompt (%d tokens) + max-tokens (%d) exceeds %s context window (~%d tokens).",
					tokens, genMaxTokens, mi.Name, mi.ContextTokens))
			}
			if cost, ok := ai.EstimateCostUSD(model, tokens, genMaxTokens); ok {
				estCost = cost
				p.Info("Estimated max cost: ~$%.4f (in %.6f/out %.6f per 1K tokens)", cost, mi.InputPerK, mi.OutputPerK)
			}
		}
		if err := enforceBudget(estCost, genBudgetLimit); err != nil {
			return err
		}

		if genDryRun {
			if !genQuiet {
				// Deterministic dry-run request id for observability
				sum := sha1.Sum([]byte(prompt))
				rid := fmt.Sprintf("sim_%x", sum[:6])
				fmt.Fprintln(out, "\n--dry-run: no API call will be made. Prompt preview below --")
				fmt.Fprintf(out, "Provider: %s  Model: %s\n", provider, model)
				fmt.Fprintf(out, "Request ID (dry-run): %s\n", rid)
			}
			fmt.Fprintln(out, prompt)
			return nil
		}

		if genPrintPrompt && !genQuiet {
			fmt.Fprintln(out, "\n--print-prompt: sending the following prompt --")
			fmt.Fprintln(out, prompt)
		}

		timeout := time.Duration(genTimeoutSec) * time.Second
		if genTimeoutSec <= 0 {
			timeout = c.GenerateTimeout()
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		p.Info("⚙ Generating with %s model=%s ...", provider, model)
		res := ctl.GenerateDocument(ctx, cfgpkg.ResolveAPIKey(flagAPIKey, c), genEmail)
		if !res.Success {
			return explainGenerationError(res.Err, provider, model)
		}

		savedPath := ""
		if genOutputPath != "-" {
			dir, name := outputTarget(c, genOutputPath, ctl.DownloadFilename())
			d := &workflow.FileDownloader{Dir: dir}
			if err := ctl.DownloadDocument(d, res.Content, name); err != nil {
				return err
			}
			savedPath = d.Path
		}

		if genCopy {
			if err := ctl.CopyToClipboard(res.Content); err != nil {
				p.Warn(fmt.Sprintf("%s: %v", workflow.MsgCopyFailed, err))
			}
		}

		return formatAndWriteOutput(res.Content, outputOptions{
			JSON:         genJSON,
			Quiet:        genQuiet,
			Repository:   repo.FullName,
			Model:        model,
			MaxTokens:    genMaxTokens,
			Temperature:  genTemp,
			PromptTokens: tokens,
			SavedPath:    savedPath,
			Writer:       out,
		})
	},
}

func resetUnset(provided map[string]bool) {
	if !provided["email"] {
		genEmail = ""
	}
	if !provided["model"] {
		genModel = ""
	}
	if !provided["model-preset"] {
		genModelPreset = ""
	}
	if !provided["provider"] {
		genProvider = ""
	}
	if !provided["max-tokens"] {
		genMaxTokens = defaultGenMaxTokens
	}
	if !provided["temp"] {
		genTemp = defaultGenTemp
	}
	if !provided["dry-run"] {
		genDryRun = false
	}
	if !provided["quiet"] {
		genQuiet = false
	}
	if !provided["json"] {
		genJSON = false
	}
	if !provided["print-prompt"] {
		genPrintPrompt = false
	}
	if !provided["budget-limit"] {
		genBudgetLimit = 0
	}
	if !provided["output"] {
		genOutputPath = ""
	}
	if !provided["copy"] {
		genCopy = false
	}
	if !provided["timeout-sec"] {
		genTimeoutSec = 0
	}
}

// outputTarget splits --output into a directory and file name. Without
// --output the README goes to output_dir under the derived filename.
func outputTarget(c *cfgpkg.Global, output, derived string) (string, string) {
	if output == "" {
		dir := c.OutputDir
		if dir == "" {
			dir = "."
		}
		return dir, derived
	}
	return filepath.Dir(output), filepath.Base(output)
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVar(&genEmail, "email", "", "contact email to include in the README")
	generateCmd.Flags().StringVar(&genModel, "model", "", "override model (default from config)")
	generateCmd.Flags().StringVar(&genModelPreset, "model-preset", "", "pick a model by tier (cheap|balanced|high-context) or <provider>:<tier>")
	generateCmd.Flags().StringVar(&genProvider, "provider", "", "generation provider: gemini|openrouter (default from config)")
	generateCmd.Flags().IntVar(&genMaxTokens, "max-tokens", defaultGenMaxTokens, "max tokens for the README")
	generateCmd.Flags().Float64Var(&genTemp, "temp", defaultGenTemp, "sampling temperature")
	generateCmd.Flags().BoolVar(&genDryRun, "dry-run", false, "fetch the repository and print the prompt without calling the model")
	generateCmd.Flags().BoolVar(&genPrintPrompt, "print-prompt", false, "print the prompt being sent to the model")
	generateCmd.Flags().Float64Var(&genBudgetLimit, "budget-limit", 0, "fail if estimated max cost (USD) exceeds this budget")
	generateCmd.Flags().StringVarP(&genOutputPath, "output", "o", "", "path to write the README (default <output_dir>/<repo>-README.md; '-' for stdout only)")
	generateCmd.Flags().BoolVar(&genCopy, "copy", false, "copy the generated README to the clipboard")
	generateCmd.Flags().BoolVar(&genQuiet, "quiet", false, "suppress non-essential output")
	generateCmd.Flags().BoolVar(&genJSON, "json", false, "emit result as JSON to stdout")
	generateCmd.Flags().IntVar(&genTimeoutSec, "timeout-sec", 0, "generation timeout in seconds (default from config)")
}
