// Package websearch provides a client for the Google Programmable Search
// JSON API, used to retrieve public web evidence about a creator.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://customsearch.googleapis.com/customsearch/v1"

// Client performs web search operations.
type Client interface {
	Search(ctx context.Context, query string, pageSize int) ([]Result, error)
}

// Result is a single search hit.
type Result struct {
	Title           string `json:"title"`
	Snippet         string `json:"snippet"`
	Link            string `json:"link"`
	MetaDescription string `json:"meta_description,omitempty"`
	RichSnippet     string `json:"rich_snippet,omitempty"`
}

// QuotaError indicates the provider rejected the request for quota or
// billing reasons. Distinct from a credential failure.
type QuotaError struct {
	StatusCode int
	Body       string
}

func (e *QuotaError) Error() string {
	return "websearch: quota exceeded (status " + strconv.Itoa(e.StatusCode) + ")"
}

// AuthError indicates the provider rejected the configured credentials.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return "websearch: request not authorized (status " + strconv.Itoa(e.StatusCode) + ")"
}

// IsQuota reports whether err is (or wraps) a QuotaError.
func IsQuota(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

// IsAuth reports whether err is (or wraps) an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey   string
	engineID string
	baseURL  string
	http     *http.Client
}

// NewClient creates a Programmable Search client. engineID is the custom
// search engine identifier (cx parameter).
func NewClient(apiKey, engineID string, opts ...Option) Client {
	c := &httpClient{
		apiKey:   apiKey,
		engineID: engineID,
		baseURL:  defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchResponse struct {
	Items []searchItem `json:"items"`
}

type searchItem struct {
	Title   string  `json:"title"`
	Link    string  `json:"link"`
	Snippet string  `json:"snippet"`
	PageMap pageMap `json:"pagemap"`
}

type pageMap struct {
	MetaTags []map[string]string `json:"metatags"`
}

func (c *httpClient) Search(ctx context.Context, query string, pageSize int) ([]Result, error) {
	if pageSize <= 0 || pageSize > 10 {
		pageSize = 5
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.engineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "websearch: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "websearch: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "websearch: read response")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &QuotaError{StatusCode: resp.StatusCode, Body: string(body)}
	case resp.StatusCode == http.StatusForbidden && strings.Contains(strings.ToLower(string(body)), "quota"):
		return nil, &QuotaError{StatusCode: resp.StatusCode, Body: string(body)}
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return nil, &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	default:
		return nil, eris.Errorf("websearch: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "websearch: unmarshal response")
	}

	results := make([]Result, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		r := Result{
			Title:   item.Title,
			Snippet: item.Snippet,
			Link:    item.Link,
		}
		for _, tags := range item.PageMap.MetaTags {
			if d := tags["og:description"]; d != "" && r.MetaDescription == "" {
				r.MetaDescription = d
			}
			if d := tags["description"]; d != "" && r.MetaDescription == "" {
				r.MetaDescription = d
			}
		}
		results = append(results, r)
	}
	return results, nil
}
