package httpclient

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultMaxRedirects caps how many redirect hops a request follows before failing.
const DefaultMaxRedirects = 5

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
}

// Option tweaks the underlying resty client.
type Option func(*resty.Client)

// WithMaxRedirects overrides DefaultMaxRedirects.
func WithMaxRedirects(n int) Option {
	return func(c *resty.Client) {
		c.SetRedirectPolicy(resty.FlexibleRedirectPolicy(n))
	}
}

// WithLogger routes resty's own warnings and errors to l.
func WithLogger(l resty.Logger) Option {
	return func(c *resty.Client) {
		if l != nil {
			c.SetLogger(l)
		}
	}
}

// NewRestyClient creates a new RestyClient with the specified timeout.
// The same value bounds connection setup and the whole request.
func NewRestyClient(timeout time.Duration, opts ...Option) *RestyClient {
	c := newRestyBaseClient(timeout)
	for _, opt := range opts {
		opt(c)
	}
	return &RestyClient{client: c}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(timeout)
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: timeout,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
	})
	c.SetTimeout(timeout)
	c.SetRedirectPolicy(resty.FlexibleRedirectPolicy(DefaultMaxRedirects))
	return c
}

// Get performs an HTTP GET request with the specified context, URL, and headers.
func (r *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	req := r.client.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// Post performs an HTTP POST request sending body verbatim.
func (r *RestyClient) Post(ctx context.Context, url string, body []byte, headers map[string]string) (Response, error) {
	req := r.client.R().SetContext(ctx).SetBody(body)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	resp, err := req.Post(url)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// Close drops idle keep-alive connections. The client stays usable.
func (r *RestyClient) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	r.client.GetClient().CloseIdleConnections()
	return nil
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte    { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int { return r.resp.StatusCode() }
