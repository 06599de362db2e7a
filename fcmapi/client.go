// Package fcmapi is the request layer for the remote notification API. It
// builds authenticated JSON requests, walks the configured base URLs until
// one answers and normalizes every failure into an *APIError.
package fcmapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/assettrack/notifsync/version"
	"github.com/cpacia/proxyclient"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"sync"
	"time"
)

var log = logging.MustGetLogger("FCMAPI")

// DefaultAttemptTimeout bounds a single attempt against one base URL.
const DefaultAttemptTimeout = time.Second * 10

// Credentials supplies the user's auth token. It is the app's auth layer,
// not something this package owns.
type Credentials interface {
	AuthToken() (string, error)
}

// CredentialsFunc adapts a function to Credentials.
type CredentialsFunc func() (string, error)

// AuthToken calls f.
func (f CredentialsFunc) AuthToken() (string, error) {
	return f()
}

// Config configures a Client.
type Config struct {
	// BaseURL is the host tried first, without the /api suffix.
	BaseURL string

	// FallbackURLs are tried in order when the primary cannot be reached.
	FallbackURLs []string

	// AttemptTimeout bounds each attempt. Defaults to DefaultAttemptTimeout.
	AttemptTimeout time.Duration

	// HTTPClient defaults to a proxy aware client.
	HTTPClient *http.Client

	// Credentials, if set, is consulted for the bearer token whenever no
	// token was set explicitly.
	Credentials Credentials

	// Metrics may be nil.
	Metrics *Metrics
}

// Client talks to the remote notification API.
type Client struct {
	urls           []string
	attemptTimeout time.Duration
	httpClient     *http.Client
	credentials    Credentials
	metrics        *Metrics

	mtx       sync.Mutex
	primary   int
	authToken string
}

// NewClient returns a new Client for the given config.
func NewClient(cfg Config) (*Client, error) {
	var urls []string
	for _, u := range append([]string{cfg.BaseURL}, cfg.FallbackURLs...) {
		u = strings.TrimRight(strings.TrimSpace(u), "/")
		if u == "" {
			continue
		}
		urls = append(urls, u)
	}
	if len(urls) == 0 {
		return nil, errors.New("fcmapi: no base url configured")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = proxyclient.NewHttpClient()
		client.Timeout = time.Minute
	}
	timeout := cfg.AttemptTimeout
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}
	return &Client{
		urls:           urls,
		attemptTimeout: timeout,
		httpClient:     client,
		credentials:    cfg.Credentials,
		metrics:        cfg.Metrics,
	}, nil
}

// SetAuthToken sets the bearer token used on subsequent requests.
func (c *Client) SetAuthToken(token string) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.authToken = token
}

// ClearAuthToken drops the explicitly set bearer token.
func (c *Client) ClearAuthToken() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.authToken = ""
}

// CurrentBaseURL returns the base URL requests start from.
func (c *Client) CurrentBaseURL() string {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.urls[c.primary]
}

// BuildHeaders returns the headers for a request. It never fails: if the
// auth token cannot be obtained the Authorization header is left out.
func (c *Client) BuildHeaders() map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}

	c.mtx.Lock()
	token := c.authToken
	c.mtx.Unlock()

	if token == "" && c.credentials != nil {
		t, err := c.credentials.AuthToken()
		if err != nil {
			log.Warningf("Unable to read auth token: %s", err)
		} else {
			token = t
		}
	}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return headers
}

// Request performs a JSON request against endpoint, relative to
// <base>/api. On a non-2xx response it returns an *APIError carrying the
// status. If no base URL answers it returns an *APIError with status zero.
func (c *Client) Request(ctx context.Context, method, endpoint string, body interface{}) (json.RawMessage, error) {
	start := time.Now()
	label := endpointLabel(endpoint)

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request body")
		}
	}

	resp, err := c.do(ctx, method, endpoint, payload)
	if err != nil {
		c.metrics.observe(label, "transport_error", start)
		log.Errorf("%s %s: %s", method, endpoint, err)
		return nil, err
	}

	if resp.status < 200 || resp.status > 299 {
		apiErr := &APIError{Status: resp.status, Message: errorMessage(resp)}
		c.metrics.observe(label, fmt.Sprintf("%dxx", resp.status/100), start)
		log.Errorf("%s %s: status %d: %s", method, endpoint, resp.status, apiErr.Message)
		return nil, apiErr
	}

	c.metrics.observe(label, "ok", start)
	log.Debugf("%s %s: status %d", method, endpoint, resp.status)
	if len(bytes.TrimSpace(resp.body)) == 0 {
		return json.RawMessage("{}"), nil
	}
	return json.RawMessage(resp.body), nil
}

type response struct {
	status      int
	contentType string
	body        []byte
}

// do tries the current primary first and then the remaining base URLs in
// configured order. The first URL to produce any HTTP response becomes the
// primary and its response is returned, whatever the status.
func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) (*response, error) {
	c.mtx.Lock()
	order := []int{c.primary}
	for i := range c.urls {
		if i != c.primary {
			order = append(order, i)
		}
	}
	c.mtx.Unlock()

	headers := c.BuildHeaders()

	var lastErr error
	for _, idx := range order {
		resp, err := c.attempt(ctx, method, c.urls[idx]+"/api"+endpoint, headers, payload)
		if err == nil {
			c.promote(idx)
			return resp, nil
		}
		lastErr = err
		log.Warningf("Request to %s failed: %s", c.urls[idx], err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, transportError(lastErr)
}

func (c *Client) attempt(ctx context.Context, method, url string, headers map[string]string, payload []byte) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", version.UserAgent())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &response{
		status:      resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		body:        respBody,
	}, nil
}

func (c *Client) promote(idx int) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.primary == idx {
		return
	}
	log.Noticef("Switching primary API base url from %s to %s", c.urls[c.primary], c.urls[idx])
	c.primary = idx
	c.metrics.switched()
}

// errorMessage extracts the message of a failed response: the JSON message
// (or error) field when the body is JSON, otherwise the raw text.
func errorMessage(resp *response) string {
	if strings.Contains(resp.contentType, "application/json") {
		var body struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(resp.body, &body); err == nil {
			if body.Message != "" {
				return body.Message
			}
			if body.Error != "" {
				return body.Error
			}
		}
	} else if text := strings.TrimSpace(string(resp.body)); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP error! status: %d", resp.status)
}

func endpointLabel(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}
