package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/oarkflow/json"

	basic "github.com/akadjoker/basic-interpreter"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	s, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Shutdown() })
	return s
}

func post(t *testing.T, s *Server, path, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

func TestEvalHandler(t *testing.T) {
	s := newTestServer(t, Config{CacheSize: 16, PrintEnv: true})
	status, body := post(t, s, "/api/eval", `{"source": "var x = 5\nx + 1\nswitch 3 case 1 : 10 endswitch"}`)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var resp EvalResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	expected := []string{"5", "6", "null"}
	if strings.Join(resp.Results, ",") != strings.Join(expected, ",") {
		t.Fatalf("expected %v, got %v", expected, resp.Results)
	}
	if resp.RequestID == "" {
		t.Fatalf("expected request id")
	}
	last := resp.Environment[len(resp.Environment)-1]
	if last.Name != "x" || last.Value != "5" {
		t.Fatalf("unexpected environment %v", resp.Environment)
	}
}

func TestEvalHandlerErrors(t *testing.T) {
	s := newTestServer(t, Config{})
	tests := []struct {
		source string
		status int
		code   basic.ErrorCode
	}{
		{"5 / 0", http.StatusUnprocessableEntity, basic.ErrCodeRuntime},
		{"(1 + 2", http.StatusBadRequest, basic.ErrCodeSyntax},
		{"1 # 2", http.StatusBadRequest, basic.ErrCodeLex},
		{"exit()", http.StatusBadRequest, basic.ErrCodeExit},
	}
	for _, tt := range tests {
		body, _ := json.Marshal(EvalRequest{Source: tt.source})
		status, data := post(t, s, "/api/eval", string(body))
		if status != tt.status {
			t.Fatalf("%q: expected status %d, got %d: %s", tt.source, tt.status, status, data)
		}
		var resp EvalResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Error == nil || resp.Error.Code != string(tt.code) {
			t.Fatalf("%q: expected error code %s, got %+v", tt.source, tt.code, resp.Error)
		}
		if len(resp.Results) != 0 {
			t.Fatalf("%q: expected no results, got %v", tt.source, resp.Results)
		}
	}

	status, _ := post(t, s, "/api/eval", `{"source": "   "}`)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty source, got %d", status)
	}
}

func TestEvalRequestsDoNotShareVariables(t *testing.T) {
	s := newTestServer(t, Config{})
	if status, body := post(t, s, "/api/eval", `{"source": "secret = 42"}`); status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	status, body := post(t, s, "/api/eval", `{"source": "secret"}`)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected undefined variable, got %d: %s", status, body)
	}
}

func TestEvalUsesGlobals(t *testing.T) {
	s := newTestServer(t, Config{Globals: map[string]basic.Number{"limit": basic.Int(10)}})
	_, body := post(t, s, "/api/eval", `{"source": "limit * 2"}`)
	var resp EvalResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0] != "20" {
		t.Fatalf("unexpected results %v", resp.Results)
	}
}

func TestEvalTimeout(t *testing.T) {
	s := newTestServer(t, Config{Timeout: 20 * time.Millisecond})
	status, body := post(t, s, "/api/eval", `{"source": "while (1) then 1 endwhile"}`)
	if status != http.StatusRequestTimeout {
		t.Fatalf("expected 408, got %d: %s", status, body)
	}
}

func TestProgramCache(t *testing.T) {
	s := newTestServer(t, Config{CacheSize: 16})
	source := `{"source": "2^2^3"}`
	post(t, s, "/api/eval", source)
	s.cache.Wait()
	_, body := post(t, s, "/api/eval", source)
	var resp EvalResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Cached {
		t.Fatalf("expected cached program on second request")
	}
	if resp.Results[0] != "256" {
		t.Fatalf("expected 256, got %v", resp.Results)
	}
}

func TestProgramCacheHoldsConfiguredCount(t *testing.T) {
	s := newTestServer(t, Config{CacheSize: 4})
	sources := []string{"1 + 1", "2 * 3", "4 - 9", "10 / 4"}
	for _, src := range sources {
		body, _ := json.Marshal(EvalRequest{Source: src})
		post(t, s, "/api/eval", string(body))
		s.cache.Wait()
	}
	for _, src := range sources {
		body, _ := json.Marshal(EvalRequest{Source: src})
		_, data := post(t, s, "/api/eval", string(body))
		var resp EvalResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if !resp.Cached {
			t.Fatalf("%q: expected program to stay cached in a cache of %d", src, len(sources))
		}
	}
}

func TestTokensHandler(t *testing.T) {
	s := newTestServer(t, Config{})
	status, body := post(t, s, "/api/tokens", `{"source": "3 + 2 * 5"}`)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	var resp struct {
		Tokens []TokenResponse `json:"tokens"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	var types []string
	for _, tok := range resp.Tokens {
		types = append(types, tok.Type)
	}
	if got := strings.Join(types, " "); got != "INT PLUS INT MUL INT EOF" {
		t.Fatalf("unexpected token types %s", got)
	}
}

func TestParseHandler(t *testing.T) {
	s := newTestServer(t, Config{})
	_, body := post(t, s, "/api/parse", `{"source": "x = 1 x + 2 * 3"}`)
	var resp ParseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Valid || len(resp.Statements) != 2 || resp.Statements[1] != "(x + (2 * 3))" {
		t.Fatalf("unexpected parse response %+v", resp)
	}

	_, body = post(t, s, "/api/parse", `{"source": "if (1) then 2"}`)
	resp = ParseResponse{}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Valid || resp.Error == nil || resp.Error.Code != string(basic.ErrCodeSyntax) {
		t.Fatalf("expected syntax error, got %+v", resp)
	}
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t, Config{Version: "test"})
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}
