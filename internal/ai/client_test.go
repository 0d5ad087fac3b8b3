package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

type ipv4Server struct {
	URL string
	srv *http.Server
	ln  net.Listener
}

func newIPv4Server(t *testing.T, handler http.Handler) *ipv4Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	srv := &http.Server{Handler: handler}
	s := &ipv4Server{
		URL: "http://" + ln.Addr().String(),
		srv: srv,
		ln:  ln,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("test server serve: %v", err))
		}
	}()
	return s
}

func (s *ipv4Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

func TestOpenRouterGenerateSendsSingleRequest(t *testing.T) {
	var calls int32
	var gotAuth string
	var gotBody GenerateRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&calls, 1)
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: "# README"}}}})
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", 2*time.Second, srv.URL)
	resp, err := c.Generate(context.Background(), UserPrompt("openai/gpt-4o-mini", "hi"))
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if resp.Text() != "# README" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotBody.Model != "openai/gpt-4o-mini" || len(gotBody.Messages) != 1 || gotBody.Messages[0].Content != "hi" {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected exactly one request, got %d", n)
	}
}

func TestOpenRouterNoRetryOn429(t *testing.T) {
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "rate limited"}})
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test", 2*time.Second, srv.URL)
	_, err := c.Generate(context.Background(), UserPrompt("m", "hi"))
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rl.RetryAfter != 3*time.Second {
		t.Fatalf("expected Retry-After 3s, got %v", rl.RetryAfter)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected no retries, got %d calls", n)
	}
}

func TestErrorIncludesRequestID(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", "req_test_123")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "bad req", "code": "bad_request"}})
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test", 2*time.Second, srv.URL)
	_, err := c.Generate(context.Background(), UserPrompt("m", "hi"))
	if err == nil {
		t.Fatalf("expected error")
	}
	var br *BadRequestError
	if !errors.As(err, &br) {
		t.Fatalf("expected BadRequestError, got %T", err)
	}
	if !strings.Contains(err.Error(), "req_test_123") {
		t.Fatalf("expected request id in error, got: %v", err)
	}
}

func TestMissingKeyNeverCallsServer(t *testing.T) {
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	for _, rt := range []Runtime{
		NewClientWithBaseURL("  ", time.Second, srv.URL),
		NewGeminiClientWithBaseURL("", time.Second, srv.URL),
	} {
		if _, err := rt.Generate(context.Background(), UserPrompt("m", "hi")); !errors.Is(err, ErrMissingAPIKey) {
			t.Fatalf("expected ErrMissingAPIKey, got %v", err)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}

func TestGeminiGenerateWireFormat(t *testing.T) {
	var gotPath, gotKey string
	var gotBody geminiRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"# Title\n"},{"text":"body"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":7,"candidatesTokenCount":3,"totalTokenCount":10},"responseId":"r1"}`)
	}))
	defer srv.Close()

	c := NewGeminiClientWithBaseURL("g-key", 2*time.Second, srv.URL)
	resp, err := c.Generate(context.Background(), UserPrompt("gemini-1.5-flash", "write a readme"))
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if gotPath != "/v1beta/models/gemini-1.5-flash:generateContent" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotKey != "g-key" {
		t.Fatalf("unexpected key header %q", gotKey)
	}
	if len(gotBody.Contents) != 1 || gotBody.Contents[0].Role != "user" || gotBody.Contents[0].Parts[0].Text != "write a readme" {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
	if gotBody.GenerationConfig != nil {
		t.Fatalf("expected no generation config, got %+v", gotBody.GenerationConfig)
	}
	if resp.Text() != "# Title\nbody" {
		t.Fatalf("unexpected text %q", resp.Text())
	}
	if resp.Usage.TotalTokens != 10 || resp.ID != "r1" {
		t.Fatalf("unexpected usage/id: %+v", resp)
	}
}

func TestGeminiInvalidKeyIsAuthError(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`)
	}))
	defer srv.Close()

	_, err := NewGeminiClientWithBaseURL("bad", time.Second, srv.URL).Generate(context.Background(), UserPrompt("gemini-1.5-flash", "x"))
	var auth *AuthError
	if !errors.As(err, &auth) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if auth.Code != "INVALID_ARGUMENT" {
		t.Fatalf("expected status code captured, got %q", auth.Code)
	}
}

func TestGeminiQuotaExhausted(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"code":429,"message":"You exceeded your current quota","status":"RESOURCE_EXHAUSTED"}}`)
	}))
	defer srv.Close()

	_, err := NewGeminiClientWithBaseURL("k", time.Second, srv.URL).Generate(context.Background(), UserPrompt("gemini-1.5-flash", "x"))
	var q *QuotaExceededError
	if !errors.As(err, &q) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
}

func TestGeminiBlockedPrompt(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`)
	}))
	defer srv.Close()

	_, err := NewGeminiClientWithBaseURL("k", time.Second, srv.URL).Generate(context.Background(), UserPrompt("gemini-1.5-flash", "x"))
	var empty *EmptyResponseError
	if !errors.As(err, &empty) || empty.Reason != "SAFETY" {
		t.Fatalf("expected EmptyResponseError with SAFETY, got %v", err)
	}
}

func TestUnreachableHost(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	_, err := NewGeminiClientWithBaseURL("k", time.Second, base).Generate(context.Background(), UserPrompt("gemini-1.5-flash", "x"))
	var un *UnreachableError
	if !errors.As(err, &un) {
		t.Fatalf("expected UnreachableError, got %v", err)
	}
}

func TestGetRuntimeAliases(t *testing.T) {
	if NormalizeProvider("") != ProviderGemini || NormalizeProvider(" Google ") != ProviderGemini {
		t.Fatal("expected empty/google to map to gemini")
	}
	rt, ok := GetRuntime(NormalizeProvider("OpenRouter"), RuntimeConfig{APIKey: "k"})
	if !ok {
		t.Fatal("expected openrouter runtime")
	}
	if _, isClient := rt.(*Client); !isClient {
		t.Fatalf("expected *Client, got %T", rt)
	}
	if _, ok := GetRuntime("ollama", RuntimeConfig{}); ok {
		t.Fatal("expected unknown provider to be rejected")
	}
}

func TestEstimateCost(t *testing.T) {
	cost, ok := EstimateCostUSD(DefaultModel, 1000, 1000)
	if !ok {
		t.Fatal("expected default model in catalog")
	}
	if cost <= 0 {
		t.Fatalf("expected positive cost, got %f", cost)
	}
	if _, ok := EstimateCostUSD("nope/nope", 1, 1); ok {
		t.Fatal("expected unknown model")
	}
}
