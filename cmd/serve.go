package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/readmegen-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/readmegen-cli/internal/config"
	"github.com/KaramelBytes/readmegen-cli/internal/metrics"
	"github.com/KaramelBytes/readmegen-cli/internal/readme"
	"github.com/KaramelBytes/readmegen-cli/internal/server"
	"github.com/KaramelBytes/readmegen-cli/internal/ui"
)

var (
	serveAddr     string
	serveProvider string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local web UI",
	Long: `serve starts a local web UI on listen_addr (default 127.0.0.1:8080).
Each browser gets its own session. Changes to the config file (model, provider,
api_key) are picked up without a restart.`,
	Example: `  readmegen serve
  readmegen serve --addr :9000 --provider openrouter`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := cfgpkg.NewViper(cfgFile)
		if err != nil {
			return err
		}
		if err := cfgpkg.ReadOptional(v); err != nil {
			return err
		}
		c, err := cfgpkg.Decode(v)
		if err != nil {
			return err
		}
		if f := rootCmd.PersistentFlags(); f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
			c.HTTPTimeoutSec = flagHTTPTimeoutSec
		}
		addr := c.ListenAddr
		if cmd.Flags().Changed("addr") && serveAddr != "" {
			addr = serveAddr
		}

		st, err := serverSettings(c)
		if err != nil {
			return err
		}
		logger := slog.Default()
		srv := server.NewServer(server.Options{
			Addr:           addr,
			Fetcher:        newGitHubClient(c),
			Settings:       st,
			SessionTTL:     c.SessionTTL(),
			RequestTimeout: c.GenerateTimeout() + 30*time.Second,
			Metrics:        metrics.NewRecorder(),
			Logger:         logger,
		})

		if v.ConfigFileUsed() != "" {
			v.OnConfigChange(func(e fsnotify.Event) {
				nc, err := cfgpkg.Decode(v)
				if err != nil {
					logger.Warn("config reload failed", "file", e.Name, "error", err)
					return
				}
				next, err := serverSettings(nc)
				if err != nil {
					logger.Warn("config reload rejected", "file", e.Name, "error", err)
					return
				}
				srv.UpdateSettings(next)
			})
			v.WatchConfig()
		}

		p := ui.NewPrinterWithWriter(cmd.OutOrStdout())
		p.Info("🌐 Serving README Generator on http://%s (model %s)", addr, st.Model)
		if st.Credential == "" {
			p.Warn("No API key configured; the page will ask for one.")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("serve: %w", err)
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		p.Info("Server stopped")
		return nil
	},
}

// serverSettings builds the hot-swappable part of the server from config.
func serverSettings(c *cfgpkg.Global) (server.Settings, error) {
	provider := resolveProvider(c, serveProvider)
	model := selectModel(c, "", provider)
	newRuntime, err := buildRuntime(c, provider)
	if err != nil {
		return server.Settings{}, err
	}
	gen := readme.NewGenerator(newRuntime, readme.Options{
		Model:       model,
		MaxTokens:   defaultGenMaxTokens,
		Temperature: defaultGenTemp,
	}).WithLogger(slog.Default())
	return server.Settings{
		Credential: cfgpkg.ResolveAPIKey(flagAPIKey, c),
		Model:      model,
		Generator:  gen,
	}, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides listen_addr)")
	serveCmd.Flags().StringVar(&serveProvider, "provider", "", fmt.Sprintf("generation provider: %s|%s (default from config)", ai.ProviderGemini, ai.ProviderOpenRouter))
}
