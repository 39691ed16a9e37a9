// Package remote implements domain.DesignRepository over the design backend's REST API.
//
// The backend exposes a collection at <base>/ and items at <base>/<id>/. Full updates use
// PUT; backends that answer 405 Method Not Allowed get the same body again via PATCH.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fiberonix/netdesign/codec"
	"github.com/fiberonix/netdesign/domain"
	"github.com/fiberonix/netdesign/logger"
	"github.com/fiberonix/netdesign/observability"
)

var _ domain.DesignRepository = (*Client)(nil)

const (
	maxResponseBytes = 8 << 20
	maxErrorExcerpt  = 512
)

// StatusError is returned when the backend answers with a status the operation does not accept.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string // Leading part of the response body.
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Client talks to the design backend.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	decoder    *codec.Decoder
	logger     *logger.Logger
	metrics    *observability.Collector
}

// New returns a client for the collection at baseURL, e.g. "https://host/api/network-device/designs/".
func New(baseURL string, options ...func(*Client) error) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url %s : %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %s must be http or https", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.NewNop(),
	}
	for _, option := range options {
		if err := option(c); err != nil {
			return nil, fmt.Errorf("applying option on client : %w", err)
		}
	}
	if c.decoder == nil {
		c.decoder = codec.NewDecoder(c.logger)
	}
	return c, nil
}

// WithHTTPClient replaces the default http.Client (30s timeout).
func WithHTTPClient(hc *http.Client) func(*Client) error {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("http client is nil")
		}
		c.httpClient = hc
		return nil
	}
}

// WithTimeout sets the timeout of the underlying http.Client.
func WithTimeout(d time.Duration) func(*Client) error {
	return func(c *Client) error {
		c.httpClient.Timeout = d
		return nil
	}
}

// WithToken sends token verbatim in the Authorization header.
func WithToken(token string) func(*Client) error {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

// WithLogger sets the logger used for failed calls and ratio warnings.
func WithLogger(l *logger.Logger) func(*Client) error {
	return func(c *Client) error {
		if l != nil {
			c.logger = l
		}
		return nil
	}
}

// WithDecoder overrides how records are turned into chains.
func WithDecoder(d *codec.Decoder) func(*Client) error {
	return func(c *Client) error {
		c.decoder = d
		return nil
	}
}

// WithMetrics records every call in the collector.
func WithMetrics(m *observability.Collector) func(*Client) error {
	return func(c *Client) error {
		c.metrics = m
		return nil
	}
}

// ListDesigns implements domain.DesignRepository.
func (c *Client) ListDesigns(ctx context.Context) ([]*domain.Chain, error) {
	start := time.Now()
	status, body, err := c.send(ctx, http.MethodGet, c.baseURL.String(), nil)
	if err != nil {
		c.observe("list", "error", start)
		return nil, fmt.Errorf("listing designs : %w", err)
	}
	if status != http.StatusOK {
		c.observe("list", "error", start)
		return nil, fmt.Errorf("listing designs : %w", c.statusError(http.MethodGet, c.baseURL.String(), status, body))
	}

	records, err := codec.UnmarshalChains(body)
	if err != nil {
		c.observe("list", "error", start)
		return nil, fmt.Errorf("listing designs : %w", err)
	}
	c.observe("list", "ok", start)

	chains := make([]*domain.Chain, len(records))
	for i, r := range records {
		chains[i] = c.decoder.DecodeChain(r)
	}
	return chains, nil
}

// GetDesign implements domain.DesignRepository.
func (c *Client) GetDesign(ctx context.Context, id string) (*domain.Chain, error) {
	if id == "" {
		return nil, domain.ErrDesignNotFound
	}
	start := time.Now()
	target := c.itemURL(id)
	status, body, err := c.send(ctx, http.MethodGet, target, nil)
	if err != nil {
		c.observe("get", "error", start)
		return nil, fmt.Errorf("getting design %s : %w", id, err)
	}

	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		c.observe("get", "not_found", start)
		return nil, domain.ErrDesignNotFound
	default:
		c.observe("get", "error", start)
		return nil, fmt.Errorf("getting design %s : %w", id, c.statusError(http.MethodGet, target, status, body))
	}

	record, err := codec.UnmarshalChain(body)
	if err != nil {
		c.observe("get", "error", start)
		return nil, fmt.Errorf("getting design %s : %w", id, err)
	}
	c.observe("get", "ok", start)
	return c.decoder.DecodeChain(record), nil
}

// CreateDesign implements domain.DesignRepository. The id is read from the response body.
func (c *Client) CreateDesign(ctx context.Context, chain *domain.Chain) (string, error) {
	payload, err := json.Marshal(codec.EncodeChain(chain))
	if err != nil {
		return "", fmt.Errorf("encoding design %s : %w", chain.Name, err)
	}

	start := time.Now()
	status, body, err := c.send(ctx, http.MethodPost, c.baseURL.String(), payload)
	if err != nil {
		c.observe("create", "error", start)
		return "", fmt.Errorf("creating design %s : %w", chain.Name, err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		c.observe("create", "error", start)
		return "", fmt.Errorf("creating design %s : %w", chain.Name, c.statusError(http.MethodPost, c.baseURL.String(), status, body))
	}
	c.observe("create", "ok", start)

	record, err := codec.UnmarshalChain(body)
	if err != nil || record.ID == "" {
		c.logger.Warn("created design without id in response", "name", chain.Name, "status", status)
		return "", nil
	}
	return string(record.ID), nil
}

// UpdateDesign implements domain.DesignRepository.
// A 405 answer to PUT is retried once as PATCH with the same body; only that second
// outcome is reported.
func (c *Client) UpdateDesign(ctx context.Context, chain *domain.Chain) error {
	if chain.ID == "" {
		return fmt.Errorf("updating design %s : %w", chain.Name, domain.ErrMissingDesignID)
	}
	payload, err := json.Marshal(codec.EncodeChain(chain))
	if err != nil {
		return fmt.Errorf("encoding design %s : %w", chain.ID, err)
	}

	start := time.Now()
	target := c.itemURL(chain.ID)
	method := http.MethodPut
	status, body, err := c.send(ctx, method, target, payload)
	if err == nil && status == http.StatusMethodNotAllowed {
		c.logger.Debug("full update rejected, retrying as partial update", "design_id", chain.ID)
		method = http.MethodPatch
		status, body, err = c.send(ctx, method, target, payload)
	}
	if err != nil {
		c.observe("update", "error", start)
		return fmt.Errorf("updating design %s : %w", chain.ID, err)
	}

	switch status {
	case http.StatusOK, http.StatusAccepted, http.StatusNoContent:
		c.observe("update", "ok", start)
		return nil
	case http.StatusNotFound:
		c.observe("update", "not_found", start)
		return domain.ErrDesignNotFound
	default:
		c.observe("update", "error", start)
		return fmt.Errorf("updating design %s : %w", chain.ID, c.statusError(method, target, status, body))
	}
}

// DeleteDesign implements domain.DesignRepository.
func (c *Client) DeleteDesign(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrDesignNotFound
	}
	start := time.Now()
	target := c.itemURL(id)
	status, body, err := c.send(ctx, http.MethodDelete, target, nil)
	if err != nil {
		c.observe("delete", "error", start)
		return fmt.Errorf("deleting design %s : %w", id, err)
	}

	switch status {
	case http.StatusOK, http.StatusAccepted, http.StatusNoContent:
		c.observe("delete", "ok", start)
		return nil
	case http.StatusNotFound:
		c.observe("delete", "not_found", start)
		return domain.ErrDesignNotFound
	default:
		c.observe("delete", "error", start)
		return fmt.Errorf("deleting design %s : %w", id, c.statusError(http.MethodDelete, target, status, body))
	}
}

// send performs one request. A non-nil error means the request never produced a response;
// HTTP statuses are left to the caller.
func (c *Client) send(ctx context.Context, method, target string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("building %s request : %w", method, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		log := c.logger
		if sessionID, ok := domain.SessionIDFromContext(ctx); ok {
			log = log.With("session_id", sessionID.String())
		}
		log.Error("design backend unreachable", "method", method, "url", target, "error", err)
		return 0, nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("reading %s response : %w", method, err)
	}
	return res.StatusCode, body, nil
}

func (c *Client) itemURL(id string) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + id + "/"
	u.RawPath = c.baseURL.EscapedPath() + url.PathEscape(id) + "/"
	return u.String()
}

func (c *Client) statusError(method, target string, status int, body []byte) *StatusError {
	excerpt := strings.TrimSpace(string(body))
	if len(excerpt) > maxErrorExcerpt {
		excerpt = excerpt[:maxErrorExcerpt]
	}
	c.logger.Warn("design backend rejected request", "method", method, "url", target, "status", status)
	return &StatusError{Method: method, URL: target, StatusCode: status, Body: excerpt}
}

func (c *Client) observe(operation, outcome string, start time.Time) {
	c.metrics.ObserveRemote(operation, outcome, time.Since(start))
}
