package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/types"
)

// Client talks to a running bot's HTTP surface.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	useLogging bool
	retry      *RetryConfig
}

// HTTPError is a non-2xx answer from the bot.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// logDebug logs debug messages using the global logger
func (c *Client) logDebug(ctx context.Context, msg string, args ...any) {
	if c.useLogging {
		logger.Debug(ctx, msg, args...)
	}
}

// logWarn logs warning messages using the global logger
func (c *Client) logWarn(ctx context.Context, msg string, args ...any) {
	if c.useLogging {
		logger.Warn(ctx, msg, args...)
	}
}

// ClientOption configures the API client
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHeader sets a default header for all requests
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithLogging enables logging for the API client
func WithLogging(enabled bool) ClientOption {
	return func(c *Client) {
		c.useLogging = enabled
	}
}

// WithRetry retries idempotent GETs on transport and 5xx failures
func WithRetry(cfg *RetryConfig) ClientOption {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the bot listening at baseURL
func NewClient(baseURL string, opts ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
		headers: make(map[string]string),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Request represents an HTTP request configuration
type Request struct {
	Method  string
	URL     string
	Body    any
	Headers map[string]string
	ctx     context.Context
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// NewRequest creates a new request
func NewRequest(method, url string) *Request {
	return &Request{
		Method:  method,
		URL:     url,
		Headers: make(map[string]string),
		ctx:     context.Background(),
	}
}

// WithContext sets the context for the request
func (r *Request) WithContext(ctx context.Context) *Request {
	r.ctx = ctx
	return r
}

// WithBody sets the request body (will be JSON encoded)
func (r *Request) WithBody(body any) *Request {
	r.Body = body
	return r
}

// Do executes the HTTP request. Status codes >= 400 return *HTTPError.
func (c *Client) Do(req *Request) (*Response, error) {
	url := c.baseURL + req.URL

	var bodyReader io.Reader
	if req.Body != nil {
		jsonBody, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(req.ctx, req.Method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	for key, value := range c.headers {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	c.logDebug(req.ctx, "HTTP Request", "method", req.Method, "url", url)

	startTime := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logDebug(req.ctx, "HTTP Response",
		"method", req.Method,
		"url", url,
		"status", httpResp.StatusCode,
		"duration", time.Since(startTime),
		"bodySize", len(body))

	if httpResp.StatusCode >= 400 {
		c.logWarn(req.ctx, "HTTP error response",
			"method", req.Method,
			"url", url,
			"status", httpResp.StatusCode,
			"body", string(body))
		return nil, &HTTPError{StatusCode: httpResp.StatusCode, Message: errorMessage(body)}
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Headers:    httpResp.Header,
	}, nil
}

func errorMessage(body []byte) string {
	var env struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &env) == nil && env.Error != "" {
		return env.Error
	}
	return string(bytes.TrimSpace(body))
}

// GET performs a GET request, retried when WithRetry is set
func (c *Client) GET(ctx context.Context, url string) (*Response, error) {
	req := NewRequest(http.MethodGet, url).WithContext(ctx)
	if c.retry != nil {
		return c.DoWithRetry(req, c.retry)
	}
	return c.Do(req)
}

// POST performs a POST request
func (c *Client) POST(ctx context.Context, url string, body any) (*Response, error) {
	return c.Do(NewRequest(http.MethodPost, url).WithContext(ctx).WithBody(body))
}

// ParseJSON parses the response body as JSON into the given struct
func (r *Response) ParseJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}

// ParseData decodes the "data" member of a success envelope into v
func (r *Response) ParseData(v any) error {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := r.ParseJSON(&env); err != nil {
		return err
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("failed to parse response data: %w", err)
	}
	return nil
}

// String returns the response body as a string
func (r *Response) String() string {
	return string(r.Body)
}

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
}

// DefaultRetryConfig returns default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 3,
		InitialWait: 1 * time.Second,
		MaxWait:     5 * time.Second,
	}
}

// DoWithRetry executes a request with retry logic. Client errors (4xx) are
// not retried.
func (c *Client) DoWithRetry(req *Request, config *RetryConfig) (*Response, error) {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	waitTime := config.InitialWait

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		resp, err := c.Do(req)
		if err == nil {
			return resp, nil
		}
		if he, ok := err.(*HTTPError); ok && he.StatusCode < 500 {
			return nil, err
		}

		lastErr = err
		c.logWarn(req.ctx, "Request failed, retrying", "attempt", attempt, "error", err, "waitTime", waitTime)

		if attempt < config.MaxAttempts {
			select {
			case <-time.After(waitTime):
			case <-req.ctx.Done():
				return nil, req.ctx.Err()
			}
			waitTime = waitTime * 2
			if waitTime > config.MaxWait {
				waitTime = config.MaxWait
			}
		}
	}

	return nil, fmt.Errorf("all %d retry attempts failed: %w", config.MaxAttempts, lastErr)
}

// SubmitBar posts a price bar to the webhook.
func (c *Client) SubmitBar(ctx context.Context, bar types.PriceBar, qty int) (*types.BarResult, error) {
	body := map[string]any{"symbol": bar.Symbol, "high": bar.High, "low": bar.Low, "close": bar.Close}
	if qty > 0 {
		body["quantity"] = qty
	}
	if !bar.Timestamp.IsZero() {
		body["timestamp"] = bar.Timestamp
	}
	resp, err := c.POST(ctx, "/webhook", body)
	if err != nil {
		return nil, err
	}
	var res types.BarResult
	return &res, resp.ParseData(&res)
}

// SubmitAction posts a manual buy or sell to the webhook.
func (c *Client) SubmitAction(ctx context.Context, symbol, action string, qty int) (*types.Trade, error) {
	body := map[string]any{"symbol": symbol, "action": action}
	if qty > 0 {
		body["quantity"] = qty
	}
	resp, err := c.POST(ctx, "/webhook", body)
	if err != nil {
		return nil, err
	}
	var t types.Trade
	return &t, resp.ParseData(&t)
}

func (c *Client) Strategies(ctx context.Context) ([]types.StrategyStatus, error) {
	resp, err := c.GET(ctx, "/strategies")
	if err != nil {
		return nil, err
	}
	var out []types.StrategyStatus
	return out, resp.ParseData(&out)
}

func (c *Client) Strategy(ctx context.Context, symbol string) (types.StrategyStatus, error) {
	var st types.StrategyStatus
	resp, err := c.GET(ctx, "/strategy/"+url.PathEscape(symbol))
	if err != nil {
		return st, err
	}
	return st, resp.ParseData(&st)
}

func (c *Client) Reset(ctx context.Context, symbol string) error {
	_, err := c.POST(ctx, "/strategy/"+url.PathEscape(symbol)+"/reset", nil)
	return err
}

func (c *Client) Exit(ctx context.Context, symbol string) (*types.TradeSummary, error) {
	resp, err := c.POST(ctx, "/strategy/"+url.PathEscape(symbol)+"/exit", nil)
	if err != nil {
		return nil, err
	}
	var s types.TradeSummary
	return &s, resp.ParseData(&s)
}

// SetMonitoring starts (on=true) or stops the exit monitor.
func (c *Client) SetMonitoring(ctx context.Context, on bool) (types.MonitorStatus, error) {
	path := "/monitoring/stop"
	if on {
		path = "/monitoring/start"
	}
	var out struct {
		Monitoring types.MonitorStatus `json:"monitoring"`
	}
	resp, err := c.POST(ctx, path, nil)
	if err != nil {
		return out.Monitoring, err
	}
	return out.Monitoring, resp.ParseData(&out)
}

func (c *Client) Monitoring(ctx context.Context) (types.MonitorStatus, error) {
	var ms types.MonitorStatus
	resp, err := c.GET(ctx, "/monitoring")
	if err != nil {
		return ms, err
	}
	return ms, resp.ParseData(&ms)
}

func (c *Client) Trades(ctx context.Context, limit int) ([]types.TradeSummary, error) {
	path := "/trades"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	resp, err := c.GET(ctx, path)
	if err != nil {
		return nil, err
	}
	var out []types.TradeSummary
	return out, resp.ParseData(&out)
}
