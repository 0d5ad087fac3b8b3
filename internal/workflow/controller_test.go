package workflow

import (
	"context"
	"errors"
	"mime"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/KaramelBytes/readmegen-cli/internal/github"
	"github.com/KaramelBytes/readmegen-cli/internal/readme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchCall struct {
	owner, repo string
}

// stubFetcher answers from repos; a missing key is a NotFoundError.
// When gate is set, each call blocks until a value is sent on it.
type stubFetcher struct {
	mu    sync.Mutex
	repos map[string]*github.Repository
	calls []fetchCall
	err   error
	gate  chan struct{}
}

func (s *stubFetcher) GetRepository(ctx context.Context, owner, repo string) (*github.Repository, error) {
	s.mu.Lock()
	s.calls = append(s.calls, fetchCall{owner, repo})
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	r, ok := s.repos[owner+"/"+repo]
	if !ok {
		return nil, &github.NotFoundError{Ref: github.RepoRef{Owner: owner, Repo: repo}}
	}
	return r, nil
}

type stubGenerator struct {
	mu      sync.Mutex
	result  readme.Result
	calls   int
	gate    chan struct{}
	lastKey string
}

func (s *stubGenerator) Generate(_ context.Context, repo *github.Repository, credential, email string) readme.Result {
	s.mu.Lock()
	s.calls++
	s.lastKey = credential
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return s.result
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(m string) { n.mu.Lock(); n.successes = append(n.successes, m); n.mu.Unlock() }
func (n *recordingNotifier) Error(m string)   { n.mu.Lock(); n.errors = append(n.errors, m); n.mu.Unlock() }

type fakeClipboard struct {
	text string
	err  error
}

func (f *fakeClipboard) WriteAll(t string) error {
	if f.err != nil {
		return f.err
	}
	f.text = t
	return nil
}

type countingObserver struct {
	mu       sync.Mutex
	fetches  map[string]int
	generate map[string]int
}

func (o *countingObserver) ObserveFetch(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fetches == nil {
		o.fetches = map[string]int{}
	}
	o.fetches[outcome]++
}

func (o *countingObserver) ObserveGenerate(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generate == nil {
		o.generate = map[string]int{}
	}
	o.generate[outcome]++
}

func widgetRepo() *github.Repository {
	return &github.Repository{Name: "widget", FullName: "acme/widget", DefaultBranch: "main", Topics: []string{}}
}

func newTestController(f *stubFetcher, g *stubGenerator, opts ...Option) *Controller {
	return NewController(f, g, opts...)
}

func TestFetchThenGenerate(t *testing.T) {
	f := &stubFetcher{repos: map[string]*github.Repository{"acme/widget": widgetRepo()}}
	g := &stubGenerator{result: readme.Result{Content: "# Widget", Success: true}}
	n := &recordingNotifier{}
	c := newTestController(f, g, WithNotifier(n))

	require.NoError(t, c.FetchRepository(context.Background(), "https://github.com/acme/widget"))
	st := c.State()
	require.NotNil(t, st.Repository)
	assert.Equal(t, "acme/widget", st.Repository.FullName)
	assert.False(t, st.IsLoading)
	assert.Empty(t, st.Error)
	assert.Equal(t, []fetchCall{{"acme", "widget"}}, f.calls)

	res := c.GenerateDocument(context.Background(), "key", "")
	require.True(t, res.Success)
	st = c.State()
	assert.Equal(t, "# Widget", st.GeneratedDocument)
	assert.False(t, st.IsGenerating)
	assert.Equal(t, "key", g.lastKey)
	assert.Equal(t, "widget-README.md", c.DownloadFilename())
	assert.Equal(t, []string{MsgRepositoryLoaded, MsgReadmeGenerated}, n.successes)
}

func TestFetchStripsGitSuffix(t *testing.T) {
	f := &stubFetcher{repos: map[string]*github.Repository{"acme/widget": widgetRepo()}}
	c := newTestController(f, &stubGenerator{})

	require.NoError(t, c.FetchRepository(context.Background(), "git clone https://github.com/acme/widget.git"))
	assert.Equal(t, []fetchCall{{"acme", "widget"}}, f.calls)
}

func TestFetchParseErrorLeavesLoadingUntouched(t *testing.T) {
	f := &stubFetcher{}
	obs := &countingObserver{}
	c := newTestController(f, &stubGenerator{}, WithObserver(obs))

	err := c.FetchRepository(context.Background(), "https://gitlab.com/acme/widget")
	require.ErrorIs(t, err, github.ErrParse)
	st := c.State()
	assert.Equal(t, "Invalid GitHub URL. Please enter a valid GitHub repository URL.", st.Error)
	assert.False(t, st.IsLoading)
	assert.Nil(t, st.Repository)
	assert.Empty(t, f.calls)
	assert.Equal(t, 1, obs.fetches["parse_error"])
}

func TestFetchNotFoundKeepsPreviousRepository(t *testing.T) {
	f := &stubFetcher{repos: map[string]*github.Repository{"acme/widget": widgetRepo()}}
	g := &stubGenerator{result: readme.Result{Content: "doc", Success: true}}
	c := newTestController(f, g)

	require.NoError(t, c.FetchRepository(context.Background(), "github.com/acme/widget"))
	c.GenerateDocument(context.Background(), "key", "")

	err := c.FetchRepository(context.Background(), "github.com/acme/missing")
	var nf *github.NotFoundError
	require.ErrorAs(t, err, &nf)

	st := c.State()
	assert.Equal(t, github.NotFoundMessage, st.Error)
	require.NotNil(t, st.Repository)
	assert.Equal(t, "acme/widget", st.Repository.FullName)
	assert.Equal(t, "doc", st.GeneratedDocument)
	assert.False(t, st.IsLoading)
}

func TestFetchSuccessClearsGeneratedDocument(t *testing.T) {
	other := &github.Repository{Name: "gadget", FullName: "acme/gadget"}
	f := &stubFetcher{repos: map[string]*github.Repository{"acme/widget": widgetRepo(), "acme/gadget": other}}
	g := &stubGenerator{result: readme.Result{Content: "doc", Success: true}}
	c := newTestController(f, g)

	require.NoError(t, c.FetchRepository(context.Background(), "github.com/acme/widget"))
	c.GenerateDocument(context.Background(), "key", "")
	require.NoError(t, c.FetchRepository(context.Background(), "github.com/acme/gadget"))

	st := c.State()
	assert.Equal(t, "acme/gadget", st.Repository.FullName)
	assert.Empty(t, st.GeneratedDocument)
}

func TestFetchPathTrustsSegments(t *testing.T) {
	f := &stubFetcher{repos: map[string]*github.Repository{"acme/widget": widgetRepo()}}
	c := newTestController(f, &stubGenerator{})

	require.NoError(t, c.FetchRepositoryPath(context.Background(), "acme", "widget.git"))
	assert.Equal(t, []fetchCall{{"acme", "widget"}}, f.calls)

	assert.ErrorIs(t, c.FetchRepositoryPath(context.Background(), "", "x"), github.ErrParse)
}

func TestGenerateWithoutRepository(t *testing.T) {
	g := &stubGenerator{result: readme.Result{Success: true, Content: "x"}}
	c := newTestController(&stubFetcher{}, g)

	res := c.GenerateDocument(context.Background(), "key", "")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, readme.ErrNoRepository)
	assert.Zero(t, g.calls)
	assert.Equal(t, State{}, c.State())
}

func TestGenerateFailureSetsError(t *testing.T) {
	f := &stubFetcher{repos: map[string]*github.Repository{"acme/widget": widgetRepo()}}
	g := &stubGenerator{result: readme.Result{Success: false, Error: readme.ErrMissingCredential.Error(), Err: readme.ErrMissingCredential}}
	n := &recordingNotifier{}
	c := newTestController(f, g, WithNotifier(n))
	require.NoError(t, c.FetchRepository(context.Background(), "github.com/acme/widget"))

	res := c.GenerateDocument(context.Background(), "", "")
	assert.False(t, res.Success)
	st := c.State()
	assert.Equal(t, "Google Gemini API key is required", st.Error)
	assert.False(t, st.IsGenerating)
	assert.Empty(t, st.GeneratedDocument)
	assert.Contains(t, n.errors, "Google Gemini API key is required")
}

func TestResetIsIdempotent(t *testing.T) {
	f := &stubFetcher{repos: map[string]*github.Repository{"acme/widget": widgetRepo()}}
	c := newTestController(f, &stubGenerator{result: readme.Result{Success: true, Content: "doc"}})
	require.NoError(t, c.FetchRepository(context.Background(), "github.com/acme/widget"))
	c.GenerateDocument(context.Background(), "key", "")

	c.Reset()
	assert.Equal(t, State{}, c.State())
	c.Reset()
	assert.Equal(t, State{}, c.State())
	assert.Equal(t, DefaultFilename, c.DownloadFilename())
}

func TestStaleFetchIsDiscarded(t *testing.T) {
	gate := make(chan struct{})
	f := &stubFetcher{repos: map[string]*github.Repository{"acme/widget": widgetRepo()}, gate: gate}
	c := newTestController(f, &stubGenerator{})

	done := make(chan error, 1)
	go func() { done <- c.FetchRepository(context.Background(), "github.com/acme/widget") }()

	require.Eventually(t, func() bool { return c.State().IsLoading }, time.Second, 5*time.Millisecond)
	c.Reset()
	close(gate)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, State{}, c.State())
}

func TestOlderFetchDoesNotOverwriteNewer(t *testing.T) {
	slow := make(chan struct{})
	f := &stubFetcher{repos: map[string]*github.Repository{
		"acme/widget": widgetRepo(),
		"acme/gadget": {Name: "gadget", FullName: "acme/gadget"},
	}, gate: slow}
	c := newTestController(f, &stubGenerator{})

	first := make(chan error, 1)
	go func() { first <- c.FetchRepository(context.Background(), "github.com/acme/widget") }()
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.calls) == 1
	}, time.Second, 5*time.Millisecond)

	f.mu.Lock()
	f.gate = nil
	f.mu.Unlock()
	require.NoError(t, c.FetchRepository(context.Background(), "github.com/acme/gadget"))

	close(slow)
	assert.ErrorIs(t, <-first, ErrSuperseded)
	assert.Equal(t, "acme/gadget", c.State().Repository.FullName)
	assert.False(t, c.State().IsLoading)
}

func TestStaleGenerationIsDiscarded(t *testing.T) {
	gate := make(chan struct{})
	f := &stubFetcher{repos: map[string]*github.Repository{"acme/widget": widgetRepo()}}
	g := &stubGenerator{result: readme.Result{Success: true, Content: "late"}, gate: gate}
	c := newTestController(f, g)
	require.NoError(t, c.FetchRepository(context.Background(), "github.com/acme/widget"))

	done := make(chan readme.Result, 1)
	go func() { done <- c.GenerateDocument(context.Background(), "key", "") }()
	require.Eventually(t, func() bool { return c.State().IsGenerating }, time.Second, 5*time.Millisecond)
	c.Reset()
	close(gate)

	res := <-done
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrSuperseded)
	assert.Empty(t, c.State().GeneratedDocument)
}

func TestCopyToClipboard(t *testing.T) {
	n := &recordingNotifier{}
	cb := &fakeClipboard{}
	c := newTestController(&stubFetcher{}, &stubGenerator{}, WithClipboard(cb), WithNotifier(n))

	require.NoError(t, c.CopyToClipboard("# doc"))
	assert.Equal(t, "# doc", cb.text)
	assert.Equal(t, []string{MsgCopied}, n.successes)

	cb.err = errors.New("denied")
	err := c.CopyToClipboard("# doc")
	var ce *ClipboardError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{MsgCopyFailed}, n.errors)
	assert.Equal(t, State{}, c.State())

	var noClip *ClipboardError
	assert.ErrorAs(t, newTestController(&stubFetcher{}, &stubGenerator{}).CopyToClipboard("x"), &noClip)
}

func TestDownloadDocumentToFile(t *testing.T) {
	dir := t.TempDir()
	c := newTestController(&stubFetcher{}, &stubGenerator{})
	d := &FileDownloader{Dir: dir}

	require.NoError(t, c.DownloadDocument(d, "# doc", "widget-README.md"))
	assert.Equal(t, filepath.Join(dir, "widget-README.md"), d.Path)
	b, err := os.ReadFile(d.Path)
	require.NoError(t, err)
	assert.Equal(t, "# doc", string(b))

	require.NoError(t, c.DownloadDocument(d, "second", ""))
	assert.Equal(t, filepath.Join(dir, DefaultFilename), d.Path)
}

func TestDownloadDocumentOverHTTP(t *testing.T) {
	rec := httptest.NewRecorder()
	c := newTestController(&stubFetcher{}, &stubGenerator{})

	require.NoError(t, c.DownloadDocument(HTTPDownloader{W: rec}, "# doc", "widget-README.md"))
	assert.Equal(t, "# doc", rec.Body.String())
	assert.Equal(t, `attachment; filename=widget-README.md`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
}

func TestDownloadFilenameHeaderRoundTrips(t *testing.T) {
	for _, name := range []string{`my "app" README.md`, `back\slash.md`, "café-README.md"} {
		rec := httptest.NewRecorder()
		require.NoError(t, HTTPDownloader{W: rec}.Download("x", name))

		disp, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
		require.NoError(t, err, name)
		assert.Equal(t, "attachment", disp)
		assert.Equal(t, name, params["filename"])
	}
}

func TestDownloadDocumentFailure(t *testing.T) {
	n := &recordingNotifier{}
	c := newTestController(&stubFetcher{}, &stubGenerator{}, WithNotifier(n))

	err := c.DownloadDocument(nil, "x", "a.md")
	var de *DownloadError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "a.md", de.Filename)
	assert.Equal(t, []string{MsgDownloadFailed}, n.errors)
}
