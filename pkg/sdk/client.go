package sdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	// DefaultAuthURL hosts the authentication endpoint.
	DefaultAuthURL = "https://dev.apinetbo.bekindnetwork.com"
	// DefaultBaseURL hosts the actions endpoints.
	DefaultBaseURL = "https://dev.api.bekindnetwork.com"
	// DefaultTimeout bounds every upstream request.
	DefaultTimeout = 30 * time.Second

	LoginPath       = "/api/Authentication/Login"
	ActionsListPath = "/api/v1/actions/admin-list"
	ActionsAddPath  = "/api/v1/actions/admin-add"

	maxResponseBytes = 10 << 20
)

// Operation names reported to observers and logs.
const (
	OpLogin        = "login"
	OpListActions  = "list_actions"
	OpCreateAction = "create_action"
)

// Observer is notified after every upstream call.
type Observer func(operation string, status int, err error, elapsed time.Duration)

// Client talks to the be kind network admin API. Requests other than login
// carry the bearer token yielded by the configured TokenSource; a missing or
// invalid token rejects the request before it leaves the process.
type Client struct {
	baseURL        string
	authURL        string
	anon           *http.Client
	authed         *http.Client
	onUnauthorized func(context.Context)
	strict         bool
	observer       Observer
	logger         logrus.FieldLogger
}

// ClientOptions configures SDK client construction.
type ClientOptions struct {
	HTTPClient     *http.Client
	TokenSource    oauth2.TokenSource
	AuthURL        string
	Timeout        time.Duration
	OnUnauthorized func(context.Context)
	StrictContract bool
	Observer       Observer
	Logger         logrus.FieldLogger
}

// ClientOption mutates ClientOptions.
type ClientOption func(*ClientOptions)

// WithHTTPClient overrides the HTTP client whose transport carries requests.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(opts *ClientOptions) {
		opts.HTTPClient = client
	}
}

// WithTokenSource supplies the bearer token for authenticated requests.
func WithTokenSource(source oauth2.TokenSource) ClientOption {
	return func(opts *ClientOptions) {
		opts.TokenSource = source
	}
}

// WithAuthURL overrides the host of the login endpoint.
func WithAuthURL(authURL string) ClientOption {
	return func(opts *ClientOptions) {
		opts.AuthURL = authURL
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(opts *ClientOptions) {
		opts.Timeout = timeout
	}
}

// WithUnauthorizedHandler registers a hook run whenever a request is rejected
// for authentication reasons, locally or by the server.
func WithUnauthorizedHandler(fn func(context.Context)) ClientOption {
	return func(opts *ClientOptions) {
		opts.OnUnauthorized = fn
	}
}

// WithStrictContract makes ListActions reject responses that do not match
// the published envelope instead of normalizing them heuristically.
func WithStrictContract() ClientOption {
	return func(opts *ClientOptions) {
		opts.StrictContract = true
	}
}

// WithObserver registers a callback invoked after each upstream call.
func WithObserver(observer Observer) ClientOption {
	return func(opts *ClientOptions) {
		opts.Observer = observer
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger logrus.FieldLogger) ClientOption {
	return func(opts *ClientOptions) {
		opts.Logger = logger
	}
}

// NewClient creates a client for the actions API at baseURL.
func NewClient(baseURL string, optFns ...ClientOption) *Client {
	opts := ClientOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if opts.AuthURL == "" {
		opts.AuthURL = DefaultAuthURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.TokenSource == nil {
		opts.TokenSource = NewTokenSource(nil)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	var base http.RoundTripper
	if opts.HTTPClient != nil {
		base = opts.HTTPClient.Transport
	}

	return &Client{
		baseURL: baseURL,
		authURL: opts.AuthURL,
		anon: &http.Client{
			Transport: base,
			Timeout:   opts.Timeout,
		},
		authed: &http.Client{
			Transport: &oauth2.Transport{Source: opts.TokenSource, Base: base},
			Timeout:   opts.Timeout,
		},
		onUnauthorized: opts.OnUnauthorized,
		strict:         opts.StrictContract,
		observer:       opts.Observer,
		logger:         opts.Logger,
	}
}

// BaseURL returns the actions API host.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// response is a fully read upstream reply with a status below 400.
type response struct {
	status int
	body   []byte
}

// do sends req and classifies failures into *APIError values.
func (c *Client) do(ctx context.Context, op string, req *http.Request, authenticated bool) (*response, error) {
	start := time.Now()
	resp, err := c.send(ctx, op, req, authenticated)

	status := 0
	if resp != nil {
		status = resp.status
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		status = apiErr.Status
	}
	if c.observer != nil {
		c.observer(op, status, err, time.Since(start))
	}

	entry := c.logger.WithFields(logrus.Fields{
		"operation": op,
		"method":    req.Method,
		"url":       req.URL.Redacted(),
		"status":    status,
		"duration":  time.Since(start).String(),
	})
	if err != nil {
		entry.WithError(err).Warn("upstream request failed")
	} else {
		entry.Debug("upstream request completed")
	}
	return resp, err
}

func (c *Client) send(ctx context.Context, op string, req *http.Request, authenticated bool) (*response, error) {
	client := c.anon
	if authenticated {
		client = c.authed
	}

	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			// Rejected by the token source; nothing was sent.
			c.unauthorized(ctx)
			return nil, apiErr
		}
		return nil, &APIError{Kind: KindNetwork, Message: MsgNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, Status: resp.StatusCode, Message: MsgNetwork, Err: err}
	}

	switch {
	case resp.StatusCode >= 500:
		msg := bodyMessage(body)
		if msg == "" {
			msg = serverFallback(op, resp.StatusCode)
		}
		return nil, &APIError{Kind: KindServer, Status: resp.StatusCode, Message: msg, Body: body}

	case resp.StatusCode == http.StatusUnauthorized && authenticated:
		c.unauthorized(ctx)
		return nil, &APIError{
			Kind:    KindUnauthenticated,
			Status:  resp.StatusCode,
			Message: extractMessage(body, resp.StatusCode),
			Body:    body,
		}

	case resp.StatusCode >= 400:
		msg := extractMessage(body, resp.StatusCode)
		kind := KindHTTP
		if resp.StatusCode == http.StatusForbidden && isCORSMessage(msg) {
			kind = KindCORS
			msg = MsgCORSRejected
		}
		return nil, &APIError{Kind: kind, Status: resp.StatusCode, Message: msg, Body: body}
	}

	return &response{status: resp.StatusCode, body: body}, nil
}

func (c *Client) unauthorized(ctx context.Context) {
	if c.onUnauthorized != nil {
		c.onUnauthorized(ctx)
	}
}

func (c *Client) endpoint(host, path string, query url.Values) (string, error) {
	full, err := url.JoinPath(host, path)
	if err != nil {
		return "", fmt.Errorf("invalid API URL %q: %w", host, err)
	}
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	return full, nil
}

func serverFallback(op string, status int) string {
	switch op {
	case OpListActions:
		return "Error al cargar las acciones"
	case OpCreateAction:
		return "Error al crear la acción"
	default:
		return fmt.Sprintf("Error %d: %s", status, http.StatusText(status))
	}
}
