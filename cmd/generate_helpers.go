package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KaramelBytes/readmegen-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/readmegen-cli/internal/config"
	"github.com/KaramelBytes/readmegen-cli/internal/github"
	"github.com/KaramelBytes/readmegen-cli/internal/readme"
	"github.com/KaramelBytes/readmegen-cli/internal/ui"
	"github.com/KaramelBytes/readmegen-cli/internal/workflow"
	"github.com/spf13/cobra"
)

// statusNotifier shows workflow successes. Failures come back as errors and
// are reported once by Execute.
type statusNotifier struct{ p *ui.Printer }

func (n statusNotifier) Success(msg string) { n.p.Success(msg) }
func (statusNotifier) Error(string)         {}

// printerFor returns the printer for a command. With --json, status lines go
// to stderr so stdout carries only the JSON document.
func printerFor(cmd *cobra.Command, jsonOut, quiet bool) *ui.Printer {
	if jsonOut {
		p := ui.NewPrinterWithWriter(cmd.ErrOrStderr())
		p.SetQuiet(true)
		return p
	}
	p := ui.NewPrinterWithWriter(cmd.OutOrStdout())
	p.SetQuiet(quiet)
	return p
}

func newGitHubClient(c *cfgpkg.Global) *github.Client {
	return github.NewClientWithBaseURL(c.HTTPTimeout(), c.GitHubAPIURL)
}

// resolveProvider picks the explicit flag, then config, then gemini.
func resolveProvider(c *cfgpkg.Global, flag string) string {
	if strings.TrimSpace(flag) != "" {
		return ai.NormalizeProvider(flag)
	}
	if c != nil {
		return ai.NormalizeProvider(c.Provider)
	}
	return ai.ProviderGemini
}

// buildRuntime returns a RuntimeFunc for the provider. The credential is
// bound per call so a rotated key takes effect on the next generation.
func buildRuntime(c *cfgpkg.Global, provider string) (readme.RuntimeFunc, error) {
	if _, ok := ai.GetRuntime(provider, ai.RuntimeConfig{}); !ok {
		return nil, fmt.Errorf("provider not supported: %s (use gemini or openrouter)", provider)
	}
	rc := ai.RuntimeConfig{HTTPTimeout: c.GenerateTimeout()}
	switch provider {
	case ai.ProviderGemini:
		rc.BaseURL = c.GeminiBaseURL
	case ai.ProviderOpenRouter:
		rc.BaseURL = c.OpenRouterBaseURL
	}
	return func(credential string) ai.Runtime {
		cfg := rc
		cfg.APIKey = credential
		rt, _ := ai.GetRuntime(provider, cfg)
		return rt
	}, nil
}

// selectModel returns the explicit model, then the configured one when it
// belongs to provider, then the cheap tier for provider.
func selectModel(c *cfgpkg.Global, explicit, provider string) string {
	if explicit != "" {
		return explicit
	}
	if c != nil && c.Model != "" {
		if mi, ok := ai.LookupModel(c.Model); !ok || mi.Provider == provider {
			return c.Model
		}
	}
	if name, ok := ai.RecommendModel(provider, ai.TierCheap); ok {
		return name
	}
	return ai.DefaultModel
}

// applyModelPreset resolves --model-preset, which is a tier
// (cheap|balanced|high-context) or <provider>:<tier>. It returns the
// provider to use and the recommended model.
func applyModelPreset(preset, provider string) (string, string, error) {
	tier := strings.TrimSpace(preset)
	if prov, t, ok := strings.Cut(tier, ":"); ok {
		provider = ai.NormalizeProvider(prov)
		tier = strings.TrimSpace(t)
	}
	name, ok := ai.RecommendModel(provider, tier)
	if !ok {
		return provider, "", fmt.Errorf("unknown --model-preset: %s (use cheap|balanced|high-context or <gemini|openrouter>:<tier>)", preset)
	}
	return provider, name, nil
}

func enforceBudget(estCost, limit float64) error {
	if limit > 0 && estCost > 0 && estCost > limit {
		return fmt.Errorf("✗ Estimated cost ~$%.4f exceeds budget limit ~$%.4f", estCost, limit)
	}
	return nil
}

// explainGenerationError adds a user-facing hint to common failure classes.
func explainGenerationError(err error, provider, model string) error {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
		empty   *ai.EmptyResponseError
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, readme.ErrMissingCredential):
		return fmt.Errorf("%w: pass --api-key, set READMEGEN_API_KEY or GEMINI_API_KEY, or run 'readmegen config set api_key <key>'", err)
	case errors.Is(err, readme.ErrNoRepository), errors.Is(err, workflow.ErrSuperseded):
		return err
	case errors.As(err, &unreach):
		return fmt.Errorf("%s endpoint unreachable. Check your network and base URL settings: %w", provider, err)
	case errors.As(err, &authErr):
		return fmt.Errorf("authentication failed: check the API key for %s: %w", provider, err)
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("rate limited, try again in ~%ds: %w", int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("rate limited by provider, please retry: %w", err)
	case errors.As(err, &nfErr):
		return fmt.Errorf("model not found (%s). Verify the model name or see 'readmegen models show': %w", model, err)
	case errors.As(err, &brErr):
		return fmt.Errorf("request invalid. Try a smaller --max-tokens: %w", err)
	case errors.As(err, &qErr):
		return fmt.Errorf("quota/billing issue. Check your provider account: %w", err)
	case errors.As(err, &sErr):
		return fmt.Errorf("provider appears unavailable (server error). Please retry later: %w", err)
	case errors.As(err, &empty):
		return fmt.Errorf("the model returned no README: %w", err)
	default:
		return fmt.Errorf("generation failed: %w", err)
	}
}

type outputOptions struct {
	JSON         bool
	Quiet        bool
	Repository   string
	Model        string
	MaxTokens    int
	Temperature  float64
	PromptTokens int
	SavedPath    string
	Writer       io.Writer
}

func formatAndWriteOutput(content string, opts outputOptions) error {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	if opts.JSON {
		out := map[string]any{
			"repository":    opts.Repository,
			"model":         opts.Model,
			"max_tokens":    opts.MaxTokens,
			"temperature":   opts.Temperature,
			"prompt_tokens": opts.PromptTokens,
			"content":       content,
		}
		if opts.SavedPath != "" {
			out["saved_path"] = opts.SavedPath
		}
		b, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
		fmt.Fprintln(w, string(b))
		return nil
	}

	if opts.Quiet {
		fmt.Fprintln(w, content)
		return nil
	}
	fmt.Fprintln(w, "\n=== README ===")
	fmt.Fprintln(w, content)
	if opts.SavedPath != "" {
		fmt.Fprintf(w, "\n💾 Saved README to %s\n", opts.SavedPath)
	}
	return nil
}
