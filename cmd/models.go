package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/KaramelBytes/readmegen-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/readmegen-cli/internal/config"
	"github.com/KaramelBytes/readmegen-cli/internal/utils"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect the model catalog and pricing used for estimates",
	Example: `  readmegen models show
  readmegen models show --provider openrouter
  readmegen models recommend --provider gemini
  readmegen models sync --file ./models.json --merge
  readmegen models fetch --url https://example.com/models.json --output models.json`,
}

var modelsShowProvider string

var modelsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current model catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := ai.Catalog()
		if modelsShowProvider != "" {
			want := ai.NormalizeProvider(modelsShowProvider)
			for k, mi := range cat {
				if mi.Provider != want {
					delete(cat, k)
				}
			}
		}
		// encoding/json sorts map keys, so output order is stable
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cat)
	},
}

var modelsRecommendProvider string

var modelsRecommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "List the model picked for each --model-preset tier",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := ai.NormalizeProvider(modelsRecommendProvider)
		tiers := []string{ai.TierCheap, ai.TierBalanced, ai.TierHighContext}
		found := false
		for _, tier := range tiers {
			name, ok := ai.RecommendModel(provider, tier)
			if !ok {
				continue
			}
			found = true
			line := fmt.Sprintf("%s:%s\t%s", provider, tier, name)
			if mi, ok := ai.LookupModel(name); ok {
				line += fmt.Sprintf("\tcontext≈%d\tin %.6f/out %.6f per 1K", mi.ContextTokens, mi.InputPerK, mi.OutputPerK)
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		if !found {
			return fmt.Errorf("no presets for provider: %s (use gemini or openrouter)", modelsRecommendProvider)
		}
		return nil
	},
}

var (
	syncPath  string
	syncMerge bool
)

var modelsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Load model catalog/pricing from a JSON file and save it for later runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncPath == "" {
			return fmt.Errorf("--file is required")
		}
		m, err := ai.LoadCatalogFromJSON(syncPath)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		applyCatalog(m, syncMerge)
		path, err := saveCatalog(effectiveConfig())
		if err != nil {
			return err
		}
		if syncMerge {
			fmt.Fprintf(cmd.OutOrStdout(), "Merged model catalog from file and saved it to %s\n", path)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Replaced model catalog from file and saved it to %s\n", path)
		}
		return nil
	},
}

var (
	catalogURL    string
	catalogOutput string
	catalogMerge  bool
)

var modelsFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch model catalog/pricing JSON from a URL and save it for later runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		url := catalogURL
		if url == "" {
			url = os.Getenv("READMEGEN_CATALOG_URL")
		}
		if url == "" {
			return fmt.Errorf("--url is required (or set READMEGEN_CATALOG_URL)")
		}
		m, err := fetchCatalog(url)
		if err != nil {
			return err
		}
		if catalogOutput != "" {
			data, err := json.MarshalIndent(m, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal: %w", err)
			}
			if err := os.WriteFile(catalogOutput, data, 0o644); err != nil {
				return fmt.Errorf("write file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved catalog to %s\n", catalogOutput)
		}
		applyCatalog(m, catalogMerge)
		path, err := saveCatalog(effectiveConfig())
		if err != nil {
			return err
		}
		if catalogMerge {
			fmt.Fprintf(cmd.OutOrStdout(), "Merged fetched catalog and saved it to %s\n", path)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Replaced catalog with fetched catalog and saved it to %s\n", path)
		}
		return nil
	},
}

// fetchCatalog downloads a JSON catalog of map[string]ai.ModelInfo.
func fetchCatalog(url string) (map[string]ai.ModelInfo, error) {
	client := &http.Client{Timeout: 20 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("fetch: unexpected status %s: %s", resp.Status, string(b))
	}
	var m map[string]ai.ModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return m, nil
}

func applyCatalog(m map[string]ai.ModelInfo, merge bool) {
	if merge {
		ai.MergeCatalog(m)
		return
	}
	ai.OverrideCatalog(m)
}

// saveCatalog writes the current catalog to the configured catalog path,
// which loadSavedCatalog reads on every later run.
func saveCatalog(c *cfgpkg.Global) (string, error) {
	path, err := c.CatalogPath()
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(ai.Catalog(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}
	if err := utils.SafeWriteFile(path, data); err != nil {
		return "", fmt.Errorf("save catalog: %w", err)
	}
	return path, nil
}

// loadSavedCatalog starts from the built-in catalog and swaps in the saved
// one when it exists.
func loadSavedCatalog(c *cfgpkg.Global) {
	ai.ResetCatalog()
	path, err := c.CatalogPath()
	if err != nil {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	m, err := ai.LoadCatalogFromJSON(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load model catalog %s: %v\n", path, err)
		return
	}
	ai.OverrideCatalog(m)
	slog.Debug("model catalog loaded", "path", path, "models", len(m))
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsShowCmd)
	modelsCmd.AddCommand(modelsRecommendCmd)
	modelsCmd.AddCommand(modelsSyncCmd)
	modelsCmd.AddCommand(modelsFetchCmd)

	modelsShowCmd.Flags().StringVar(&modelsShowProvider, "provider", "", "only show models for this provider")
	modelsRecommendCmd.Flags().StringVar(&modelsRecommendProvider, "provider", "gemini", "provider: gemini|openrouter")

	modelsSyncCmd.Flags().StringVar(&syncPath, "file", "", "path to JSON catalog file")
	modelsSyncCmd.Flags().BoolVar(&syncMerge, "merge", false, "merge into existing catalog instead of replacing")

	modelsFetchCmd.Flags().StringVar(&catalogURL, "url", "", "URL to JSON catalog file")
	modelsFetchCmd.Flags().StringVar(&catalogOutput, "output", "", "optional path to save the fetched JSON")
	modelsFetchCmd.Flags().BoolVar(&catalogMerge, "merge", false, "merge into existing catalog instead of replacing")
}
