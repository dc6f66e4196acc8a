// Package platform – HTTP adapter.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// Config carries the connection settings for the platform API.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.v0.dev".
	BaseURL string
	// APIKey is sent as a bearer token.
	APIKey string
}

// HTTPClient implements Client against the platform's REST API.
type HTTPClient struct {
	cfg  Config
	http *http.Client
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.http = hc
	}
}

// NewHTTPClient creates a platform API client.
func NewHTTPClient(cfg Config, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		cfg: cfg,
		http: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Wire structures. The API nests deployment records inconsistently and
// spells the preview URL three different ways; see previewURL.

type projectResponse struct {
	ID string `json:"id"`
}

type chatResponse struct {
	ID string `json:"id"`
}

type versionRef struct {
	ID         string `json:"id"`
	PreviewURL string `json:"previewUrl"`
	PreviewAlt string `json:"preview_url"`
	URL        string `json:"url"`
}

type messageResponse struct {
	Demo          string      `json:"demo"`
	LatestVersion *versionRef `json:"latestVersion"`
	Version       *versionRef `json:"version"`
}

type deploymentRecord struct {
	ID         string            `json:"id"`
	PreviewURL string            `json:"previewUrl"`
	PreviewAlt string            `json:"preview_url"`
	URL        string            `json:"url"`
	Deployment *deploymentRecord `json:"deployment"`
	Data       *deploymentRecord `json:"data"`
}

type deploymentList struct {
	Data []deploymentRecord `json:"data"`
}

// previewURL unwraps a possibly nested deployment record and returns the
// first preview URL spelling that is set.
func (d *deploymentRecord) previewURL() string {
	if d == nil {
		return ""
	}
	if d.Deployment != nil {
		return d.Deployment.previewURL()
	}
	if d.Data != nil {
		return d.Data.previewURL()
	}
	for _, u := range []string{d.PreviewURL, d.PreviewAlt, d.URL} {
		if u != "" {
			return u
		}
	}
	return ""
}

func (v *versionRef) previewURL() string {
	if v == nil {
		return ""
	}
	for _, u := range []string{v.PreviewURL, v.PreviewAlt, v.URL} {
		if u != "" {
			return u
		}
	}
	return ""
}

// CreateProject implements Client.
func (c *HTTPClient) CreateProject(ctx context.Context, roomID string) (*ProjectContext, error) {
	var project projectResponse
	err := c.call(ctx, http.MethodPost, "/v1/projects", map[string]string{
		"name":        "vibe-room-" + roomID,
		"description": "Collaborative project for room " + roomID,
		"template":    "nextjs",
	}, &project)
	if err != nil {
		return nil, err
	}

	chatID, err := c.initializeChat(ctx, project.ID, roomID)
	if err != nil {
		return nil, err
	}
	return &ProjectContext{ProjectID: project.ID, ChatID: chatID}, nil
}

// ApplyPrompt implements Client.
func (c *HTTPClient) ApplyPrompt(ctx context.Context, projectID, prompt string, opts ApplyPromptOptions) (*ProjectContext, error) {
	chatID := opts.ChatID
	if chatID == "" {
		id, err := c.initializeChat(ctx, projectID, opts.Context)
		if err != nil {
			return nil, err
		}
		chatID = id
	}

	var msg messageResponse
	err := c.call(ctx, http.MethodPost, "/v1/chats/"+url.PathEscape(chatID)+"/messages", map[string]string{
		"message": prompt,
	}, &msg)
	if err != nil {
		return nil, err
	}

	versionID := ""
	if msg.LatestVersion != nil {
		versionID = msg.LatestVersion.ID
	} else if msg.Version != nil {
		versionID = msg.Version.ID
	}
	previewURL := msg.Demo
	if previewURL == "" {
		previewURL = msg.LatestVersion.previewURL()
	}
	if previewURL == "" {
		previewURL = msg.Version.previewURL()
	}

	// Kick off a deployment; completion is not awaited.
	body := map[string]string{"projectId": projectID, "chatId": chatID}
	if versionID != "" {
		body["versionId"] = versionID
	}
	var dep deploymentRecord
	if err := c.call(ctx, http.MethodPost, "/v1/deployments", body, &dep); err != nil {
		return nil, err
	}

	return &ProjectContext{
		ProjectID:    projectID,
		ChatID:       chatID,
		VersionID:    versionID,
		DeploymentID: dep.ID,
		PreviewURL:   previewURL,
	}, nil
}

// LatestPreviewURL implements Client.
func (c *HTTPClient) LatestPreviewURL(ctx context.Context, projectID string) (string, error) {
	var list deploymentList
	path := "/v1/deployments?projectId=" + url.QueryEscape(projectID) + "&limit=1&order=desc"
	if err := c.call(ctx, http.MethodGet, path, nil, &list); err != nil {
		return "", err
	}
	if len(list.Data) == 0 {
		return "", nil
	}
	return list.Data[0].previewURL(), nil
}

// DownloadVersion implements Client.
func (c *HTTPClient) DownloadVersion(ctx context.Context, chatID, versionID string) ([]byte, error) {
	if chatID == "" || versionID == "" {
		return nil, ErrNoVersion
	}
	path := "/v1/chats/" + url.PathEscape(chatID) + "/versions/" + url.PathEscape(versionID) + "/download"
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/zip")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform: download version: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("platform: download version: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return io.ReadAll(resp.Body)
}

// initializeChat creates the control chat for a project.
func (c *HTTPClient) initializeChat(ctx context.Context, projectID, roomContext string) (string, error) {
	message := "New room is controlling this project."
	system := "This project is controlled by a collaborative room."
	if roomContext != "" {
		message = "New room " + roomContext + " is controlling this project."
		system = "This project powers room " + roomContext + "."
	}
	var chat chatResponse
	err := c.call(ctx, http.MethodPost, "/v1/chats", map[string]string{
		"projectId": projectID,
		"message":   message,
		"system":    system,
	}, &chat)
	if err != nil {
		return "", err
	}
	return chat.ID, nil
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, body)
	if err != nil {
		return nil, fmt.Errorf("platform: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	return req, nil
}

// call performs one JSON request/response round trip.
func (c *HTTPClient) call(ctx context.Context, method, path string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("platform: marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("platform: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("platform: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("platform: %s %s: HTTP %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("platform: decode response: %w", err)
		}
	}
	return nil
}
