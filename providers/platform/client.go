package platform

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"resty.dev/v3"
)

// Client talks to the platform control-plane API. All handler traffic
// goes through it so authentication, retries, and timeouts are set in
// one place.
type Client struct {
	resty   *resty.Client
	project string
}

// Options configure the API client.
type Options struct {
	Host    string
	APIKey  string
	Project string
	Timeout time.Duration
	Retries int
}

func NewClient(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retries == 0 {
		opts.Retries = 3
	}

	rc := resty.New().
		SetBaseURL(opts.Host).
		SetAuthToken(opts.APIKey).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries).
		AddRetryConditions(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			code := resp.StatusCode()
			return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
		})

	return &Client{resty: rc, project: opts.Project}
}

// Close releases the underlying transport resources.
func (c *Client) Close() error {
	return c.resty.Close()
}

func (c *Client) collectionPath(kind string) string {
	return fmt.Sprintf("/api/v1/projects/%s/%s", c.project, kind)
}

func (c *Client) itemPath(kind, name string) string {
	return fmt.Sprintf("/api/v1/projects/%s/%s/%s", c.project, kind, name)
}

// createItem POSTs a new resource to a collection and returns the
// server's view of it.
func (c *Client) createItem(ctx context.Context, kind string, body map[string]any) (map[string]any, error) {
	var out map[string]any
	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post(c.collectionPath(kind))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", kind, err)
	}
	if resp.StatusCode() != http.StatusCreated && resp.StatusCode() != http.StatusOK {
		return nil, apiError("create", kind, resp)
	}
	return out, nil
}

// getItem fetches a resource. A 404 returns (nil, nil): the resource no
// longer exists.
func (c *Client) getItem(ctx context.Context, kind, name string) (map[string]any, error) {
	var out map[string]any
	resp, err := c.resty.R().
		SetContext(ctx).
		SetResult(&out).
		Get(c.itemPath(kind, name))
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", kind, name, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError("read", kind, resp)
	}
	return out, nil
}

// putItem replaces a resource and returns the server's view of it.
func (c *Client) putItem(ctx context.Context, kind, name string, body map[string]any) (map[string]any, error) {
	var out map[string]any
	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Put(c.itemPath(kind, name))
	if err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", kind, name, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError("update", kind, resp)
	}
	return out, nil
}

// deleteItem removes a resource. A 404 is treated as already deleted.
func (c *Client) deleteItem(ctx context.Context, kind, name string) error {
	resp, err := c.resty.R().
		SetContext(ctx).
		Delete(c.itemPath(kind, name))
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", kind, name, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusNoContent {
		return apiError("delete", kind, resp)
	}
	return nil
}

// getSingleton fetches a per-project singleton document such as the
// variables set. A 404 returns (nil, nil).
func (c *Client) getSingleton(ctx context.Context, kind string) (map[string]any, error) {
	var out map[string]any
	resp, err := c.resty.R().
		SetContext(ctx).
		SetResult(&out).
		Get(c.collectionPath(kind))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", kind, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError("read", kind, resp)
	}
	return out, nil
}

// putSingleton replaces a per-project singleton document.
func (c *Client) putSingleton(ctx context.Context, kind string, body map[string]any) (map[string]any, error) {
	var out map[string]any
	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Put(c.collectionPath(kind))
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", kind, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError("update", kind, resp)
	}
	return out, nil
}

// deleteSingleton clears a per-project singleton document. A 404 means
// it was never set.
func (c *Client) deleteSingleton(ctx context.Context, kind string) error {
	resp, err := c.resty.R().
		SetContext(ctx).
		Delete(c.collectionPath(kind))
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusNoContent {
		return apiError("delete", kind, resp)
	}
	return nil
}

func apiError(op, kind string, resp *resty.Response) error {
	return fmt.Errorf("%s %s: unexpected status %d: %s", op, kind, resp.StatusCode(), resp.String())
}
