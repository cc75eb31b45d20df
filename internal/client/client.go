// Package client talks to a pyexpl execution backend over HTTP. It provides
// the dispatch.Executor and playground.Sharer used by the front ends.
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
	"time"

	"github.com/Iron-Ham/pyexpl/internal/bootstrap"
	"github.com/Iron-Ham/pyexpl/internal/dispatch"
	"github.com/Iron-Ham/pyexpl/internal/errors"
	"github.com/Iron-Ham/pyexpl/internal/runner"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 8 << 20

// Client is an execution backend client. It is safe for concurrent use.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a Client for baseURL. A zero timeout leaves requests unbounded.
func New(baseURL string, timeout time.Duration) *Client {
	return NewWithClient(baseURL, &http.Client{Timeout: timeout})
}

// NewWithClient creates a Client that issues requests through client.
func NewWithClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Execute posts the request's code to /run and decodes the result.
func (c *Client) Execute(ctx context.Context, req dispatch.Request) (dispatch.Response, error) {
	form := url.Values{}
	form.Set("code", req.Code)
	form.Set("runner", string(req.Label))

	body, err := c.postForm(ctx, "/run", form, string(req.Label))
	if err != nil {
		return dispatch.Response{}, err
	}

	var resp dispatch.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return dispatch.Response{}, errors.NewTransportError("malformed response",
			errors.Join(errors.ErrMalformedResponse, err)).
			WithRunner(string(req.Label)).
			WithBody(string(body))
	}
	return resp, nil
}

// Share stores code and runners on the backend and returns the URL of the
// shared session.
func (c *Client) Share(ctx context.Context, code string, runners runner.Set) (string, error) {
	ids := runners.Strings()
	encoded, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("encode runners: %w", err)
	}
	form := url.Values{}
	form.Set("code", code)
	form.Set("runners", string(encoded))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/share", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.NewTransportError("share request failed", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.NewTransportError("share rejected", nil).
			WithStatus(resp.StatusCode).
			WithBody(string(payload))
	}
	// The backend redirects to the stored session; the final request URL is
	// where it can be opened.
	return resp.Request.URL.String(), nil
}

// LoadShare fetches a shared session by ID or by its full URL.
func (c *Client) LoadShare(ctx context.Context, ref string) (*bootstrap.Payload, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.NewValidationError("share reference must not be empty").WithField("share")
	}
	target := ref
	if u, err := url.Parse(ref); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		target = c.baseURL + "/share/" + url.PathEscape(ref)
	}

	body, status, err := c.get(ctx, target)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, errors.NewNotFoundError("share", ref).WithCause(errors.ErrShareNotFound)
	}
	if status < 200 || status >= 300 {
		return nil, errors.NewTransportError("load share failed", nil).WithStatus(status).WithBody(string(body))
	}

	payload, err := bootstrap.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewTransportError("malformed share", errors.Join(errors.ErrMalformedResponse, err))
	}
	return payload, nil
}

// Runners lists the runners the backend supports.
func (c *Client) Runners(ctx context.Context) ([]runner.Entry, error) {
	body, status, err := c.get(ctx, c.baseURL+"/runners")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, errors.NewTransportError("list runners failed", nil).WithStatus(status).WithBody(string(body))
	}
	var entries []runner.Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, errors.NewTransportError("malformed runner list", errors.Join(errors.ErrMalformedResponse, err))
	}
	return entries, nil
}

// Health checks that the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	body, status, err := c.get(ctx, c.baseURL+"/healthz")
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return errors.NewTransportError("backend unhealthy", nil).WithStatus(status).WithBody(string(body))
	}
	return nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, label string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.NewTransportError("request failed", err).WithRunner(label)
	}
	defer resp.Body.Close() //nolint:errcheck

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.NewTransportError("read response", err).WithRunner(label)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.NewTransportError("backend rejected request", nil).
			WithStatus(resp.StatusCode).
			WithRunner(label).
			WithBody(string(payload))
	}
	return payload, nil
}

func (c *Client) get(ctx context.Context, target string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, errors.NewTransportError("request failed", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, errors.NewTransportError("read response", err)
	}
	return payload, resp.StatusCode, nil
}
