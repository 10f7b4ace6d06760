package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/api"
	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/config"
)

type recordedRequest struct {
	Method  string
	Path    string
	Body    string
	Auth    string
	Session string
	Type    string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method:  r.Method,
			Path:    r.URL.RequestURI(),
			Body:    body.String(),
			Auth:    r.Header.Get("Authorization"),
			Session: r.Header.Get(sessionHeader),
			Type:    r.Header.Get("Content-Type"),
		})

		w.Header().Set(sessionHeader, "session-from-server")
		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"success":false,"message":"No knowledge source selected. Please select a source first."}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client(t *testing.T) *apiClient {
	return &apiClient{
		baseURL:     ts.server.URL,
		token:       "test-token",
		httpClient:  ts.server.Client(),
		sessionFile: filepath.Join(t.TempDir(), ".cli-session"),
	}
}

var ctx = context.Background()

// runCommand executes the CLI with args against ts and returns stdout.
func runCommand(t *testing.T, ts *testServer, args ...string) (string, error) {
	t.Helper()
	c := ts.client(t)

	oldClient, oldOut, oldNoColor := newAPIClient, stdout, color.NoColor
	var out bytes.Buffer
	newAPIClient = func() (*apiClient, error) { return c, nil }
	stdout = &out
	stderr = io.Discard
	color.NoColor = true
	t.Cleanup(func() {
		newAPIClient, stdout, stderr, color.NoColor = oldClient, oldOut, color.Error, oldNoColor
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSelectCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/select_source": `{"success":true,"message":"networking knowledge base initialized successfully!"}`,
	})

	if _, err := runCommand(t, ts, "select", "networking"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Method != http.MethodPost || r.Path != "/api/select_source" {
		t.Errorf("request = %s %s", r.Method, r.Path)
	}
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}
	var body api.SourceSelection
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body.SourceName != "networking" {
		t.Errorf("source_name = %q", body.SourceName)
	}
}

func TestQuestionCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/generate_question": `{"question":"How does TCP open a connection?","success":true,"message":"Question generated successfully"}`,
	})

	out, err := runCommand(t, ts, "question", "--grounded")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "How does TCP open a connection?") {
		t.Errorf("output = %q", out)
	}
	if got := ts.requests[0].Path; got != "/api/generate_question?mode=grounded" {
		t.Errorf("path = %q", got)
	}
}

func TestQuestionCommand_NoSource(t *testing.T) {
	ts := newTestServer(t, map[string]string{})

	_, err := runCommand(t, ts, "question")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "No knowledge source selected. Please select a source first." {
		t.Errorf("error = %q", err.Error())
	}
}

func TestAnswerCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/submit_answer": `{"score":"7/10","feedback":"Mention SYN-ACK.","reference_answer":"SYN, SYN-ACK, ACK.","success":true,"message":"Answer evaluated successfully"}`,
	})

	out, err := runCommand(t, ts, "answer", "TCP", "uses", "a", "handshake")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Score: 7/10", "Mention SYN-ACK.", "SYN, SYN-ACK, ACK."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	var body api.AnswerRequest
	json.Unmarshal([]byte(ts.requests[0].Body), &body)
	if body.Answer != "TCP uses a handshake" {
		t.Errorf("answer = %q", body.Answer)
	}
}

func TestSourcesCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/sources": `["algorithms","networking"]`,
	})
	out, err := runCommand(t, ts, "sources")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "algorithms\nnetworking\n" {
		t.Errorf("output = %q", out)
	}
}

func TestAskCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/ask": `{"answer":"With a handshake.","passages":[{"id":"networking:1:0","source":"networking","page":1,"text":"TCP uses a three-way handshake"}],"success":true,"message":"ok"}`,
	})
	out, err := runCommand(t, ts, "ask", "--passages", "how", "does", "tcp", "connect?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "With a handshake.") || !strings.Contains(out, "[networking p.1] TCP uses a three-way handshake") {
		t.Errorf("output = %q", out)
	}
}

func TestUploadCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/upload_pdf": `{"success":true,"message":"os knowledge base initialized successfully!"}`,
	})
	path := filepath.Join(t.TempDir(), "os.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 test"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := runCommand(t, ts, "upload", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := ts.requests[0]
	if !strings.HasPrefix(r.Type, "multipart/form-data") {
		t.Errorf("content type = %q", r.Type)
	}
	if !strings.Contains(r.Body, `filename="os.pdf"`) || !strings.Contains(r.Body, "%PDF-1.4 test") {
		t.Errorf("multipart body missing file: %q", r.Body)
	}
}

func TestUploadCommand_RejectsNonPDF(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	if _, err := runCommand(t, ts, "upload", "notes.txt"); err == nil {
		t.Fatal("expected error for non-pdf file")
	}
	if len(ts.requests) != 0 {
		t.Error("non-pdf upload should not reach the server")
	}
}

func TestAPIClient_PersistsSession(t *testing.T) {
	ts := newTestServer(t, map[string]string{"GET /api/sources": `[]`})
	c := ts.client(t)

	resp, err := c.get(ctx, "/api/sources")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	data, err := os.ReadFile(c.sessionFile)
	if err != nil {
		t.Fatalf("session file not written: %v", err)
	}
	if strings.TrimSpace(string(data)) != "session-from-server" {
		t.Errorf("session file = %q", data)
	}

	next := &apiClient{baseURL: c.baseURL, httpClient: c.httpClient, sessionFile: c.sessionFile}
	next.loadSession()
	resp, err = next.get(ctx, "/api/sources")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if got := ts.requests[1].Session; got != "session-from-server" {
		t.Errorf("second request session = %q", got)
	}
	if got := ts.requests[1].Auth; got != "" {
		t.Errorf("auth without token = %q, want none", got)
	}
}

func TestStatusCommand_Stopped(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	client := ts.client(t)
	_, err := client.get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.WriteHeader(http.StatusBadGateway)
	rec.WriteString("upstream exploded")

	var v any
	err := decodeJSON(rec.Result(), &v)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "upstream exploded") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestRenderMarkdown_NoColor(t *testing.T) {
	old := color.NoColor
	defer func() { color.NoColor = old }()

	color.NoColor = true
	if got := renderMarkdown("  **bold** answer \n"); got != "**bold** answer\n" {
		t.Errorf("renderMarkdown = %q", got)
	}
}

func TestNoColorFlag(t *testing.T) {
	old := color.NoColor
	defer func() { color.NoColor = old }()

	color.NoColor = true
	if result := green.Sprint("test message"); result != "test message" {
		t.Errorf("Sprint with NoColor = %q, want plain text", result)
	}

	color.NoColor = false
	if result := green.Sprint("test message"); !strings.Contains(result, "\033[") {
		t.Errorf("Sprint with color should contain ANSI codes, got %q", result)
	}
}

func TestPIDFile(t *testing.T) {
	path := pidFilePath(filepath.Join(t.TempDir(), "data"))
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	pid, err := readPIDFile(path)
	if err != nil || pid != os.Getpid() {
		t.Errorf("readPIDFile = %d, %v", pid, err)
	}
	removePIDFile(path)
	if _, err := readPIDFile(path); err == nil {
		t.Error("PID file should be removed")
	}
}

func TestConfigShowAll(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.Port = 5000
	cfg.Server.APIToken = "secret"
	keys := config.ShowAll(cfg)

	var sawPort bool
	for _, k := range keys {
		if k.Key == "server.api_token" {
			t.Error("secret key should not be shown")
		}
		if k.Key == "server.port" && k.Value == "5000" {
			sawPort = true
		}
	}
	if !sawPort {
		t.Error("server.port not shown")
	}
}
