// Package client talks to a running studio over its REST API. The CLI uses
// it so that form commands see the same database as the builder.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/schardosin/formstudio/pkg/api"
	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/form"
	"github.com/schardosin/formstudio/pkg/placement"
	"github.com/schardosin/formstudio/pkg/store"
	"github.com/schardosin/formstudio/pkg/transfer"
)

// Client is a REST client for the studio API.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New returns a client for the studio at baseURL, e.g.
// "http://localhost:9393".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL is the studio address the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health returns the server version.
func (c *Client) Health(ctx context.Context) (string, error) {
	var out struct {
		Version string `json:"version"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/health", nil, &out); err != nil {
		return "", err
	}
	return out.Version, nil
}

func (c *Client) ListForms(ctx context.Context) ([]store.Record, error) {
	var out []store.Record
	err := c.doJSON(ctx, http.MethodGet, "/api/forms", nil, &out)
	return out, err
}

func (c *Client) GetForm(ctx context.Context, id int64) (store.Record, error) {
	var out store.Record
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/forms/%d", id), nil, &out)
	return out, err
}

func (c *Client) CreateForm(ctx context.Context, in store.Input) (store.Record, error) {
	var out store.Record
	err := c.doJSON(ctx, http.MethodPost, "/api/forms", in, &out)
	return out, err
}

func (c *Client) UpdateForm(ctx context.Context, id int64, in store.Input) (store.Record, error) {
	var out store.Record
	err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/api/forms/%d", id), in, &out)
	return out, err
}

func (c *Client) DeleteForm(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/forms/%d", id), nil, nil)
}

// ExportForm downloads form id and returns the document with the filename
// suggested by the server.
func (c *Client) ExportForm(ctx context.Context, id int64, f transfer.Format) ([]byte, string, error) {
	path := fmt.Sprintf("/api/forms/%d/export?format=%s", id, f)
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", ferrors.Wrap(ferrors.CodeNetwork, err, "read export")
	}
	filename := transfer.Filename("", f)
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		filename = params["filename"]
	}
	return data, filename, nil
}

// ImportForm uploads a form document and returns the created record.
func (c *Client) ImportForm(ctx context.Context, data []byte, f transfer.Format) (store.Record, error) {
	var out store.Record
	path := "/api/forms/import?format=" + url.QueryEscape(f.String())
	resp, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(data), f.ContentType())
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	return out, decodeBody(resp, &out)
}

// Resolve asks the server to apply one drop to tree.
func (c *Client) Resolve(ctx context.Context, tree form.Tree, t form.ComponentType, target placement.Target) (api.ResolveResponse, error) {
	var out api.ResolveResponse
	req := api.ResolveRequest{Tree: tree, Type: t, Target: target}
	err := c.doJSON(ctx, http.MethodPost, "/api/placement/resolve", req, &out)
	return out, err
}

// Generate runs one generation turn on the server. Cancelling ctx aborts
// the request; use CancelGenerate to stop a turn started elsewhere. A turn
// cancelled on the server returns an ABORTED error along with the response.
func (c *Client) Generate(ctx context.Context, req api.GenerateRequest) (api.GenerateResponse, error) {
	var out api.GenerateResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/ai/generate", req, &out); err != nil {
		return out, err
	}
	if out.Status == api.StatusAborted {
		return out, ferrors.New(ferrors.CodeAborted, "generation %s was cancelled", out.RequestID)
	}
	return out, nil
}

func (c *Client) CancelGenerate(ctx context.Context, requestID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/ai/generate/"+url.PathEscape(requestID), nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	resp, err := c.do(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeBody(resp, out)
}

// do sends a request and turns transport failures and error responses into
// coded errors. The caller closes the body of a successful response.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.CodeInvalidInput, err, "build request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil, ferrors.Wrap(ferrors.CodeAborted, err, "request cancelled")
		}
		return nil, ferrors.Wrap(ferrors.CodeNetwork, err, "cannot reach studio at %s", c.baseURL)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, responseError(resp)
	}
	return resp, nil
}

// responseError rebuilds the server's coded error from the JSON envelope.
// Bodies without an envelope, from a proxy for instance, are network errors.
func responseError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var env api.ErrorBody
	if err := json.Unmarshal(data, &env); err == nil && env.Error.Code != "" {
		return ferrors.New(env.Error.Code, "%s", env.Error.Message)
	}
	return ferrors.New(ferrors.CodeNetwork, "unexpected response %s", resp.Status)
}

func decodeBody(resp *http.Response, out any) error {
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return ferrors.Wrap(ferrors.CodeParse, err, "decode %s response", resp.Request.URL.Path)
	}
	return nil
}
