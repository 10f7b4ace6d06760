package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/config"
)

const sessionHeader = "X-Session-ID"

// serverURL overrides the address derived from config.
var serverURL string

type apiClient struct {
	baseURL    string
	token      string
	httpClient *http.Client

	// sessionFile persists the session id between invocations so that
	// select, question and answer act on the same interview.
	sessionFile string
	session     string
}

var newAPIClient = func() (*apiClient, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	base := serverURL
	if base == "" {
		base = fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	}
	c := &apiClient{
		baseURL:     strings.TrimRight(base, "/"),
		token:       cfg.Server.APIToken,
		httpClient:  &http.Client{Timeout: 5 * time.Minute},
		sessionFile: filepath.Join(cfg.Storage.DataDir, ".cli-session"),
	}
	c.loadSession()
	return c, nil
}

func (c *apiClient) loadSession() {
	if c.sessionFile == "" {
		return
	}
	data, err := os.ReadFile(c.sessionFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			printWarning("reading session file: %v", err)
		}
		return
	}
	c.session = strings.TrimSpace(string(data))
}

func (c *apiClient) saveSession(id string) {
	if id == "" || id == c.session {
		return
	}
	c.session = id
	if c.sessionFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.sessionFile), 0o755); err != nil {
		printWarning("saving session: %v", err)
		return
	}
	if err := os.WriteFile(c.sessionFile, []byte(id+"\n"), 0o600); err != nil {
		printWarning("saving session: %v", err)
	}
}

func (c *apiClient) send(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.session != "" {
		req.Header.Set(sessionHeader, c.session)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server not reachable, is interviewsim running? (%w)", err)
	}
	c.saveSession(resp.Header.Get(sessionHeader))
	return resp, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	if body == nil {
		return c.send(ctx, method, path, nil, "")
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}
	return c.send(ctx, method, path, bytes.NewReader(data), "application/json")
}

func (c *apiClient) get(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *apiClient) post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *apiClient) delete(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

// upload posts the file at path as the multipart field "file".
func (c *apiClient) upload(ctx context.Context, path string) (*http.Response, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return c.send(ctx, http.MethodPost, "/api/upload_pdf", &buf, mw.FormDataContentType())
}

// result is the common part of every interview response.
type result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// decodeJSON decodes the response body into v. Error responses carrying a
// message are returned as that message.
func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("server returned %d (failed to read body: %w)", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 {
		var r result
		if json.Unmarshal(body, &r) == nil && r.Message != "" {
			return errors.New(r.Message)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, v)
}
