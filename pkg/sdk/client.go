package statutefinder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/statutefinder/internal/version"
)

const (
	defaultTimeout = 5 * time.Minute
	maxBodyBytes   = 8 << 20
)

// Client is the statutefinder API entry point. It is safe for concurrent use.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	apiKey    string
	userAgent string
	obs       *observer
}

// New creates a Client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("statutefinder: base url %q: %w", baseURL, ErrInvalidInput)
	}

	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if cfg.userAgent == "" {
		cfg.userAgent = "statutefinder-go/" + version.Version
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:   u,
		http:      cfg.httpClient,
		apiKey:    cfg.apiKey,
		userAgent: cfg.userAgent,
		obs:       obs,
	}, nil
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// call describes one API request. op names it in logs and metrics.
type call struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
}

// do sends k and decodes a 2xx body into out when out is non-nil.
// The response header is returned even for API errors.
func (c *Client) do(ctx context.Context, k call, out any) (http.Header, error) {
	done := c.obs.begin(k.op)
	header, err := c.exchange(ctx, k, out)
	done(usageFromHeader(header), err)
	return header, err
}

func (c *Client) exchange(ctx context.Context, k call, out any) (http.Header, error) {
	status, header, body, err := c.roundTrip(ctx, k)
	if err != nil {
		return nil, err
	}
	if status/100 != 2 {
		return header, apiError(status, header, body)
	}
	if out == nil || len(body) == 0 {
		return header, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return header, fmt.Errorf("statutefinder: decode %s %s: %w", k.method, k.path, err)
	}
	return header, nil
}

func (c *Client) roundTrip(ctx context.Context, k call) (int, http.Header, []byte, error) {
	req, err := c.newRequest(ctx, k)
	if err != nil {
		return 0, nil, nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("statutefinder: %s %s: %w", k.method, k.path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("statutefinder: read %s %s: %w", k.method, k.path, err)
	}
	return resp.StatusCode, resp.Header, body, nil
}

func (c *Client) newRequest(ctx context.Context, k call) (*http.Request, error) {
	u := *c.baseURL
	u.Path += k.path
	u.RawQuery = k.query.Encode()

	var body io.Reader
	if k.body != nil {
		b, err := json.Marshal(k.body)
		if err != nil {
			return nil, fmt.Errorf("statutefinder: encode %s request: %w", k.op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, k.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("statutefinder: build %s request: %w", k.op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if k.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func apiError(status int, header http.Header, body []byte) error {
	e := &APIError{StatusCode: status, RequestID: header.Get("X-Request-ID")}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Code != "" {
		e.Code = eb.Code
		e.Message = eb.Message
	} else {
		e.Message = http.StatusText(status)
	}
	return e
}

// usageFromHeader reads the provider usage headers. Missing headers read as zero.
func usageFromHeader(h http.Header) Usage {
	n := func(key string) int {
		v, _ := strconv.Atoi(h.Get(key))
		return v
	}
	return Usage{
		Calls:            n("X-LLM-Calls"),
		PromptTokens:     n("X-Prompt-Tokens"),
		CompletionTokens: n("X-Completion-Tokens"),
		EmbeddingTokens:  n("X-Embedding-Tokens"),
	}
}
