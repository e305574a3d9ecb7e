package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kazz187/taskflow/internal/enhance"
	"github.com/kazz187/taskflow/internal/task"
	"github.com/kazz187/taskflow/pkg/cerr"
)

const maxErrorBodyBytes = 64 << 10

// Client talks to the REST surface of a taskflow server. Failed calls return
// a *cerr.Error carrying the code the server answered with, so callers can
// use cerr.IsCode(err, cerr.NotFound) and friends.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: u, httpClient: httpClient}, nil
}

// EventsURL is the WebSocket address of the server's event channel.
func (c *Client) EventsURL() string {
	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path += "/events"
	return u.String()
}

func (c *Client) List(ctx context.Context) ([]*task.Task, error) {
	var tasks []*task.Task
	if err := c.do(ctx, http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

type CreateRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	IsAIEnhanced bool   `json:"isAiEnhanced"`
}

func (c *Client) Create(ctx context.Context, req CreateRequest) (*task.Task, error) {
	var t task.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) SetStatus(ctx context.Context, id string, status task.Status) (*task.Task, error) {
	var t task.Task
	body := map[string]string{"status": status.String()}
	if err := c.do(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id), body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Enhance(ctx context.Context, title, description string) (*enhance.Result, error) {
	var res enhance.Result
	body := map[string]string{"title": title, "description": description}
	if err := c.do(ctx, http.MethodPost, "/ai/enhance", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s body: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("failed to build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return cerr.NewError(cerr.Unavailable, "server unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return cerr.NewError(cerr.Internal, "malformed response body", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	var he cerr.HTTPError
	if err := json.Unmarshal(raw, &he); err == nil && he.Message != "" {
		code, ok := cerr.ParseCode(he.Code)
		if !ok {
			code = cerr.CodeFromHTTPStatus(resp.StatusCode)
		}
		return cerr.NewError(code, he.Message, nil)
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = resp.Status
	}
	return cerr.NewError(cerr.CodeFromHTTPStatus(resp.StatusCode), msg, nil)
}
