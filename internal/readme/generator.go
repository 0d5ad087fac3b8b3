package readme

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KaramelBytes/readmegen-cli/internal/ai"
	"github.com/KaramelBytes/readmegen-cli/internal/github"
)

var (
	// ErrMissingCredential is reported when the generation credential is empty.
	ErrMissingCredential = errors.New("Google Gemini API key is required")
	// ErrNoRepository is reported when there is no repository to describe.
	ErrNoRepository = errors.New("No repository data available")
)

// GenerationError wraps any failure of the generation call itself.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	if e == nil || e.Err == nil {
		return "Failed to generate README"
	}
	return e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Result is the outcome of one generation attempt.
type Result struct {
	Content string `json:"content"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	// Err is the typed cause when Success is false.
	Err error `json:"-"`
}

func failure(err error) Result {
	return Result{Success: false, Error: err.Error(), Err: err}
}

// RuntimeFunc builds a runtime bound to one credential.
type RuntimeFunc func(credential string) ai.Runtime

// Options tune the request sent to the runtime.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Generator turns a repository snapshot into a README via a generative runtime.
// It keeps no state between calls: every call re-submits the full prompt.
type Generator struct {
	newRuntime RuntimeFunc
	opts       Options
	logger     *slog.Logger
}

// NewGenerator returns a Generator. An empty model falls back to ai.DefaultModel.
func NewGenerator(newRuntime RuntimeFunc, opts Options) *Generator {
	if opts.Model == "" {
		opts.Model = ai.DefaultModel
	}
	return &Generator{newRuntime: newRuntime, opts: opts, logger: slog.Default()}
}

// WithLogger replaces the diagnostic logger.
func (g *Generator) WithLogger(l *slog.Logger) *Generator {
	if l != nil {
		g.logger = l
	}
	return g
}

// Model returns the model identifier requests are sent to.
func (g *Generator) Model() string { return g.opts.Model }

// Generate validates inputs, builds the prompt and performs exactly one
// runtime call. Failures are reported in the Result, never returned.
func (g *Generator) Generate(ctx context.Context, repo *github.Repository, credential, email string) Result {
	if strings.TrimSpace(credential) == "" {
		return failure(ErrMissingCredential)
	}
	if repo == nil {
		return failure(ErrNoRepository)
	}

	prompt := BuildPrompt(repo, email)
	req := ai.UserPrompt(g.opts.Model, prompt)
	req.MaxTokens = g.opts.MaxTokens
	req.Temperature = g.opts.Temperature

	g.logger.Debug("generating readme", "repo", repo.FullName, "model", g.opts.Model, "prompt_chars", len(prompt))
	resp, err := g.call(ctx, credential, req)
	if err != nil {
		g.logger.Debug("generation failed", "repo", repo.FullName, "error", err)
		return failure(&GenerationError{Err: err})
	}
	return Result{Content: resp.Text(), Success: true}
}

// call isolates the runtime invocation so that a panicking runtime still
// yields a failed Result.
func (g *Generator) call(ctx context.Context, credential string, req ai.GenerateRequest) (resp *ai.GenerateResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("runtime panic: %v", r)
		}
	}()
	if g.newRuntime == nil {
		return nil, errors.New("no generation runtime configured")
	}
	rt := g.newRuntime(credential)
	if rt == nil {
		return nil, errors.New("no generation runtime configured")
	}
	resp, err = rt.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Text() == "" {
		return nil, &ai.EmptyResponseError{}
	}
	return resp, nil
}
