package cmd

import (
	"fmt"
	"strconv"

	"github.com/KaramelBytes/readmegen-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/readmegen-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set readmegen configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "api_key: %s\n", cfgpkg.MaskKey(cfgpkg.ResolveAPIKey(flagAPIKey, cfg)))
		fmt.Fprintf(w, "provider: %s\n", cfg.Provider)
		fmt.Fprintf(w, "model: %s\n", cfg.Model)
		fmt.Fprintf(w, "github_api_url: %s\n", cfg.GitHubAPIURL)
		if cfg.GeminiBaseURL != "" {
			fmt.Fprintf(w, "gemini_base_url: %s\n", cfg.GeminiBaseURL)
		}
		if cfg.OpenRouterBaseURL != "" {
			fmt.Fprintf(w, "openrouter_base_url: %s\n", cfg.OpenRouterBaseURL)
		}
		fmt.Fprintf(w, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Fprintf(w, "generate_timeout_sec: %d\n", cfg.GenerateTimeoutSec)
		fmt.Fprintf(w, "listen_addr: %s\n", cfg.ListenAddr)
		fmt.Fprintf(w, "session_ttl_min: %d\n", cfg.SessionTTLMin)
		fmt.Fprintf(w, "output_dir: %s\n", cfg.OutputDir)
		if path, err := cfg.CatalogPath(); err == nil {
			fmt.Fprintf(w, "catalog_file: %s\n", path)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := setConfigValue(cfg, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "api_key":
		c.APIKey = val
	case "provider":
		switch p := ai.NormalizeProvider(val); p {
		case ai.ProviderGemini, ai.ProviderOpenRouter:
			c.Provider = p
		default:
			return fmt.Errorf("invalid provider: %s (use gemini or openrouter)", val)
		}
	case "model":
		c.Model = val
	case "github_api_url":
		c.GitHubAPIURL = val
	case "gemini_base_url":
		c.GeminiBaseURL = val
	case "openrouter_base_url":
		c.OpenRouterBaseURL = val
	case "http_timeout_sec", "generate_timeout_sec", "session_ttl_min":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid positive int for %s: %v", key, val)
		}
		switch key {
		case "http_timeout_sec":
			c.HTTPTimeoutSec = i
		case "generate_timeout_sec":
			c.GenerateTimeoutSec = i
		default:
			c.SessionTTLMin = i
		}
	case "listen_addr":
		c.ListenAddr = val
	case "output_dir":
		c.OutputDir = val
	case "catalog_file":
		c.CatalogFile = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
