package tablestate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"corpusdash/internal/config"
	"corpusdash/internal/domain"
	"corpusdash/internal/query"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// ViewInfo describes a table as listed by /api/views.
type ViewInfo struct {
	Route        string          `json:"route"`
	Title        string          `json:"title"`
	Kind         string          `json:"kind"`
	DefaultSort  domain.Sort     `json:"defaultSort"`
	SearchFields []string        `json:"searchFields"`
	Columns      []config.Column `json:"columns"`
}

// Client talks to a corpusdash server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

var _ Fetcher = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) get(ctx context.Context, path string, v url.Values, out any) error {
	u := strings.TrimRight(c.BaseURL, "/") + path
	if len(v) > 0 {
		u += "?" + v.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error   string `json:"error"`
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &payload) == nil {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Message
			if apiErr.Message == "" {
				apiErr.Message = payload.Error
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// FetchPage requests one page of view using the same parameter encoding the
// server parses.
func (c *Client) FetchPage(ctx context.Context, view string, p query.Params, extra url.Values) (domain.PageResponse, error) {
	v, err := p.Encode()
	if err != nil {
		return domain.PageResponse{}, err
	}
	for k, vals := range extra {
		v[k] = vals
	}
	var page domain.PageResponse
	if err := c.get(ctx, "/api/"+url.PathEscape(view), v, &page); err != nil {
		return domain.PageResponse{}, err
	}
	if page.Data == nil {
		page.Data = []domain.Row{}
	}
	return page, nil
}

func (c *Client) Views(ctx context.Context) ([]ViewInfo, error) {
	var out struct {
		Views []ViewInfo `json:"views"`
	}
	if err := c.get(ctx, "/api/views", nil, &out); err != nil {
		return nil, err
	}
	return out.Views, nil
}
