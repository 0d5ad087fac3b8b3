package readme

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/KaramelBytes/readmegen-cli/internal/ai"
	"github.com/KaramelBytes/readmegen-cli/internal/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRuntime struct {
	calls   int
	lastReq ai.GenerateRequest
	reply   string
	err     error
	panics  bool
}

func (s *stubRuntime) Generate(_ context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	s.calls++
	s.lastReq = req
	if s.panics {
		panic("boom")
	}
	if s.err != nil {
		return nil, s.err
	}
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: s.reply}}}}, nil
}

func strPtr(s string) *string { return &s }

func widget() *github.Repository {
	return &github.Repository{
		Name:            "widget",
		FullName:        "acme/widget",
		Description:     strPtr("Makes widgets"),
		Language:        strPtr("Go"),
		StargazersCount: 12,
		ForksCount:      3,
		Topics:          []string{"cli", "widgets"},
		License:         &github.License{Key: "mit", Name: "MIT License", SPDXID: "MIT"},
		HasIssues:       true,
		HasWiki:         false,
		DefaultBranch:   "main",
		CreatedAt:       "2023-01-15T10:00:00Z",
		UpdatedAt:       "2024-03-02T23:30:00Z",
	}
}

func generatorFor(rt *stubRuntime) (*Generator, *[]string) {
	var creds []string
	g := NewGenerator(func(c string) ai.Runtime {
		creds = append(creds, c)
		return rt
	}, Options{})
	return g, &creds
}

func TestBuildPromptEmbedsRepositoryDetails(t *testing.T) {
	p := BuildPrompt(widget(), "")

	assert.True(t, strings.HasPrefix(p, promptHeader))
	for _, want := range []string{
		"- Name: widget\n",
		"- Full Name: acme/widget\n",
		"- Description: Makes widgets\n",
		"- Language: Go\n",
		"- Stars: 12\n",
		"- Forks: 3\n",
		"- Topics: cli, widgets\n",
		"- License: MIT License\n",
		"- Has Issues: true\n",
		"- Has Wiki: false\n",
		"- Default Branch: main\n",
		"- Created: 1/15/2023\n",
		"- Last Updated: 3/2/2024\n\nCreate a professional",
		"15. 📞 Contact/Support information (include email if provided)",
		"TABLES TO INCLUDE:",
	} {
		assert.Contains(t, p, want)
	}
	assert.NotContains(t, p, "Contact Information:")
}

func TestBuildPromptPlaceholders(t *testing.T) {
	repo := &github.Repository{Name: "bare", FullName: "a/bare", DefaultBranch: "main", CreatedAt: "2020-05-01T00:00:00Z", UpdatedAt: "garbage"}
	p := BuildPrompt(repo, "")

	assert.Contains(t, p, "- Description: No description provided\n")
	assert.Contains(t, p, "- Language: Not specified\n")
	assert.Contains(t, p, "- Topics: None\n")
	assert.Contains(t, p, "- License: Not specified\n")
	assert.Contains(t, p, "- Last Updated: garbage")
}

func TestBuildPromptContactBlock(t *testing.T) {
	p := BuildPrompt(widget(), "dev@acme.io")
	assert.Contains(t, p, "- Last Updated: 3/2/2024\n\nContact Information:\n- Email: dev@acme.io\n\nPlease include this email in the contact/support section of the README.\n\nCreate a professional")

	assert.NotContains(t, BuildPrompt(widget(), "   "), "Contact Information:")
}

func TestBuildPromptDeterministic(t *testing.T) {
	assert.Equal(t, BuildPrompt(widget(), "x@y.z"), BuildPrompt(widget(), "x@y.z"))
}

func TestGenerateMissingCredentialNeverCallsRuntime(t *testing.T) {
	rt := &stubRuntime{reply: "nope"}
	g, creds := generatorFor(rt)

	res := g.Generate(context.Background(), widget(), "  ", "")
	assert.False(t, res.Success)
	assert.True(t, errors.Is(res.Err, ErrMissingCredential))
	assert.Equal(t, "Google Gemini API key is required", res.Error)
	assert.Zero(t, rt.calls)
	assert.Empty(t, *creds)
}

func TestGenerateNoRepository(t *testing.T) {
	rt := &stubRuntime{reply: "nope"}
	g, _ := generatorFor(rt)

	res := g.Generate(context.Background(), nil, "key", "")
	assert.False(t, res.Success)
	assert.True(t, errors.Is(res.Err, ErrNoRepository))
	assert.Zero(t, rt.calls)
}

func TestGenerateSuccessReturnsTextVerbatim(t *testing.T) {
	rt := &stubRuntime{reply: "# widget 🎯\n\n  trailing  \n"}
	g, creds := generatorFor(rt)

	res := g.Generate(context.Background(), widget(), "key-1", "dev@acme.io")
	require.True(t, res.Success)
	assert.Equal(t, "# widget 🎯\n\n  trailing  \n", res.Content)
	assert.Empty(t, res.Error)
	assert.Equal(t, []string{"key-1"}, *creds)
	assert.Equal(t, 1, rt.calls)
	assert.Equal(t, ai.DefaultModel, rt.lastReq.Model)
	require.Len(t, rt.lastReq.Messages, 1)
	assert.Contains(t, rt.lastReq.Messages[0].Content, "dev@acme.io")
}

func TestGenerateRuntimeFailure(t *testing.T) {
	rt := &stubRuntime{err: &ai.AuthError{APIError: &ai.APIError{StatusCode: 401, Message: "bad key"}}}
	g, _ := generatorFor(rt)

	res := g.Generate(context.Background(), widget(), "key", "")
	assert.False(t, res.Success)
	var genErr *GenerationError
	require.True(t, errors.As(res.Err, &genErr))
	var auth *ai.AuthError
	assert.True(t, errors.As(res.Err, &auth))
	assert.Contains(t, res.Error, "bad key")
}

func TestGenerateEmptyAndPanickingRuntime(t *testing.T) {
	g, _ := generatorFor(&stubRuntime{reply: ""})
	res := g.Generate(context.Background(), widget(), "key", "")
	assert.False(t, res.Success)
	var empty *ai.EmptyResponseError
	assert.True(t, errors.As(res.Err, &empty))

	g, _ = generatorFor(&stubRuntime{panics: true})
	res = g.Generate(context.Background(), widget(), "key", "")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "boom")
}

func TestGeneratorModelOverride(t *testing.T) {
	rt := &stubRuntime{reply: "ok"}
	g := NewGenerator(func(string) ai.Runtime { return rt }, Options{Model: "gemini-1.5-pro", MaxTokens: 2048})
	res := g.Generate(context.Background(), widget(), "k", "")
	require.True(t, res.Success)
	assert.Equal(t, "gemini-1.5-pro", g.Model())
	assert.Equal(t, "gemini-1.5-pro", rt.lastReq.Model)
	assert.Equal(t, 2048, rt.lastReq.MaxTokens)
}

func TestHumanDate(t *testing.T) {
	assert.Equal(t, "1/5/2023", HumanDate("2023-01-05T00:00:00Z"))
	assert.Equal(t, "12/31/2022", HumanDate("2022-12-31T23:59:59Z"))
	assert.Equal(t, "Unknown", HumanDate(""))
	assert.Equal(t, "not-a-date", HumanDate("not-a-date"))
}
