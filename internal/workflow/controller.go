package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/KaramelBytes/readmegen-cli/internal/github"
	"github.com/KaramelBytes/readmegen-cli/internal/readme"
)

// DefaultFilename is used for downloads when no repository is loaded.
const DefaultFilename = "README.md"

// Notification texts shown after side effects complete.
const (
	MsgRepositoryLoaded = "Repository loaded successfully!"
	MsgReadmeGenerated  = "🎉 README generated successfully with emojis and tables!"
	MsgCopied           = "📋 README copied to clipboard!"
	MsgCopyFailed       = "❌ Failed to copy to clipboard"
	MsgDownloaded       = "📥 README downloaded successfully!"
	MsgDownloadFailed   = "❌ Failed to download README"
)

// Fetcher looks up one repository.
type Fetcher interface {
	GetRepository(ctx context.Context, owner, repo string) (*github.Repository, error)
}

// DocumentGenerator produces a README for a repository. It must report
// failures in the Result instead of panicking or returning errors.
type DocumentGenerator interface {
	Generate(ctx context.Context, repo *github.Repository, credential, email string) readme.Result
}

// Clipboard writes text to the host clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

// Downloader delivers a document to the user under filename.
type Downloader interface {
	Download(content, filename string) error
}

// Notifier receives transient success/failure messages.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Observer receives per-call outcomes, e.g. for metrics.
type Observer interface {
	ObserveFetch(outcome string, d time.Duration)
	ObserveGenerate(outcome string, d time.Duration)
}

// State is the workflow state visible to presentation code. Values returned
// by Controller.State are copies; mutating them has no effect.
type State struct {
	Repository        *github.Repository `json:"repository"`
	GeneratedDocument string             `json:"generated_document"`
	IsLoading         bool               `json:"is_loading"`
	IsGenerating      bool               `json:"is_generating"`
	Error             string             `json:"error,omitempty"`
}

// Controller owns State and sequences fetch and generate calls.
//
// Each fetch and each generation takes a ticket. A completion is applied
// only if its ticket is still the latest for its slot and no Reset happened
// since it started; otherwise it is dropped and ErrSuperseded is returned.
type Controller struct {
	fetcher   Fetcher
	generator DocumentGenerator
	clipboard Clipboard
	notifier  Notifier
	observer  Observer
	logger    *slog.Logger

	mu       sync.Mutex
	state    State
	fetchSeq uint64
	genSeq   uint64
	epoch    uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithClipboard sets the clipboard used by CopyToClipboard.
func WithClipboard(c Clipboard) Option { return func(ctl *Controller) { ctl.clipboard = c } }

// WithNotifier sets the notification sink.
func WithNotifier(n Notifier) Option { return func(ctl *Controller) { ctl.notifier = n } }

// WithObserver sets the outcome observer.
func WithObserver(o Observer) Option { return func(ctl *Controller) { ctl.observer = o } }

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option { return func(ctl *Controller) { ctl.logger = l } }

// NewController returns a controller with empty state.
func NewController(f Fetcher, g DocumentGenerator, opts ...Option) *Controller {
	c := &Controller{fetcher: f, generator: g}
	for _, o := range opts {
		o(c)
	}
	if c.notifier == nil {
		c.notifier = NopNotifier{}
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// FetchRepository parses rawURL and loads the repository it names.
// A parse failure sets the error without touching the loading flag.
func (c *Controller) FetchRepository(ctx context.Context, rawURL string) error {
	ref, ok := github.ParseRepoURL(rawURL)
	if !ok {
		c.mu.Lock()
		c.state.Error = github.ErrParse.Error()
		c.mu.Unlock()
		c.observer.ObserveFetch("parse_error", 0)
		c.notifier.Error(github.ErrParse.Error())
		return github.ErrParse
	}
	return c.fetch(ctx, ref)
}

// FetchRepositoryPath loads owner/repo taken verbatim from route segments,
// without the github.com host check. One trailing ".git" is stripped.
func (c *Controller) FetchRepositoryPath(ctx context.Context, owner, repo string) error {
	ref := github.RepoRef{Owner: strings.TrimSpace(owner), Repo: github.TrimGitSuffix(strings.TrimSpace(repo))}
	if ref.Owner == "" || ref.Repo == "" {
		c.mu.Lock()
		c.state.Error = github.ErrParse.Error()
		c.mu.Unlock()
		c.observer.ObserveFetch("parse_error", 0)
		return github.ErrParse
	}
	return c.fetch(ctx, ref)
}

func (c *Controller) fetch(ctx context.Context, ref github.RepoRef) error {
	c.mu.Lock()
	c.fetchSeq++
	ticket, epoch := c.fetchSeq, c.epoch
	c.state.IsLoading = true
	c.state.Error = ""
	c.mu.Unlock()

	start := time.Now()
	repo, err := c.fetcher.GetRepository(ctx, ref.Owner, ref.Repo)
	elapsed := time.Since(start)

	c.mu.Lock()
	if ticket != c.fetchSeq || epoch != c.epoch {
		c.mu.Unlock()
		c.logger.Debug("discarding stale fetch", "repo", ref.String())
		c.observer.ObserveFetch("stale", elapsed)
		return ErrSuperseded
	}
	c.state.IsLoading = false
	if err != nil {
		c.state.Error = err.Error()
		c.mu.Unlock()
		c.observer.ObserveFetch(fetchOutcome(err), elapsed)
		c.logger.Debug("fetch failed", "repo", ref.String(), "error", err)
		c.notifier.Error(err.Error())
		return err
	}
	c.state.Repository = repo
	c.state.GeneratedDocument = ""
	// A generation still running was for the previous repository.
	if c.state.IsGenerating {
		c.genSeq++
		c.state.IsGenerating = false
	}
	c.mu.Unlock()

	c.observer.ObserveFetch("ok", elapsed)
	c.logger.Debug("repository loaded", "repo", repo.FullName)
	c.notifier.Success(MsgRepositoryLoaded)
	return nil
}

func fetchOutcome(err error) string {
	var (
		nf *github.NotFoundError
		up *github.UpstreamError
		te *github.TransportError
	)
	switch {
	case errors.As(err, &nf):
		return "not_found"
	case errors.As(err, &up):
		return "upstream_error"
	case errors.As(err, &te):
		return "transport_error"
	default:
		return "error"
	}
}

// GenerateDocument generates a README for the loaded repository.
// Without a repository it returns a NoRepository result and leaves state as is.
func (c *Controller) GenerateDocument(ctx context.Context, credential, email string) readme.Result {
	c.mu.Lock()
	repo := c.state.Repository
	if repo == nil {
		c.mu.Unlock()
		c.observer.ObserveGenerate("no_repository", 0)
		return readme.Result{Success: false, Error: readme.ErrNoRepository.Error(), Err: readme.ErrNoRepository}
	}
	c.genSeq++
	ticket, epoch := c.genSeq, c.epoch
	c.state.IsGenerating = true
	c.state.Error = ""
	c.mu.Unlock()

	start := time.Now()
	res := c.generator.Generate(ctx, repo, credential, email)
	elapsed := time.Since(start)

	c.mu.Lock()
	if ticket != c.genSeq || epoch != c.epoch {
		c.mu.Unlock()
		c.logger.Debug("discarding stale generation", "repo", repo.FullName)
		c.observer.ObserveGenerate("stale", elapsed)
		if res.Success {
			return readme.Result{Success: false, Error: ErrSuperseded.Error(), Err: ErrSuperseded}
		}
		return res
	}
	c.state.IsGenerating = false
	if !res.Success {
		c.state.Error = res.Error
		c.mu.Unlock()
		c.observer.ObserveGenerate(generateOutcome(res.Err), elapsed)
		c.notifier.Error(res.Error)
		return res
	}
	c.state.GeneratedDocument = res.Content
	c.mu.Unlock()

	c.observer.ObserveGenerate("ok", elapsed)
	c.notifier.Success(MsgReadmeGenerated)
	return res
}

func generateOutcome(err error) string {
	switch {
	case errors.Is(err, readme.ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, readme.ErrNoRepository):
		return "no_repository"
	default:
		return "error"
	}
}

// CopyToClipboard writes text to the clipboard. It never changes State.
func (c *Controller) CopyToClipboard(text string) error {
	var err error
	if c.clipboard == nil {
		err = &ClipboardError{Err: errors.New("no clipboard available")}
	} else if werr := c.clipboard.WriteAll(text); werr != nil {
		err = &ClipboardError{Err: werr}
	}
	if err != nil {
		c.logger.Debug("clipboard write failed", "error", err)
		c.notifier.Error(MsgCopyFailed)
		return err
	}
	c.notifier.Success(MsgCopied)
	return nil
}

// DownloadDocument hands text to d under filename. It never changes State.
// An empty filename falls back to DefaultFilename.
func (c *Controller) DownloadDocument(d Downloader, text, filename string) error {
	if filename == "" {
		filename = DefaultFilename
	}
	var err error
	if d == nil {
		err = &DownloadError{Filename: filename, Err: errors.New("no downloader available")}
	} else if derr := d.Download(text, filename); derr != nil {
		err = &DownloadError{Filename: filename, Err: derr}
	}
	if err != nil {
		c.logger.Debug("download failed", "error", err)
		c.notifier.Error(MsgDownloadFailed)
		return err
	}
	c.notifier.Success(MsgDownloaded)
	return nil
}

// DownloadFilename returns "{name}-README.md" for the loaded repository,
// or DefaultFilename when none is loaded.
func (c *Controller) DownloadFilename() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return DownloadFilenameFor(c.state.Repository)
}

// DownloadFilenameFor derives the download filename for repo.
func DownloadFilenameFor(repo *github.Repository) string {
	if repo == nil {
		return DefaultFilename
	}
	return repo.Name + "-README.md"
}

// Reset restores the initial empty state and invalidates in-flight calls.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{}
	c.fetchSeq++
	c.genSeq++
	c.epoch++
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Success(string) {}
func (NopNotifier) Error(string)   {}

type nopObserver struct{}

func (nopObserver) ObserveFetch(string, time.Duration)    {}
func (nopObserver) ObserveGenerate(string, time.Duration) {}
