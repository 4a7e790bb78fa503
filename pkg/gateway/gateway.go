package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultRefreshPath   = "/auth/v2/refresh-token"
	defaultTimeout       = 30 * time.Second
	maxResponseBytes     = 8 << 20
	errorSnippetBytes    = 200
	headerAuthorization  = "Authorization"
	headerAccept         = "Accept"
	headerContentType    = "Content-Type"
	contentTypeJSON      = "application/json"
	bearerPrefix         = "Bearer "
	htmlDoctypeMarker    = "<!doctype"
	htmlTagMarker        = "<html"
	endpointRefreshToken = "auth.refresh_token"
)

// Service selects the backend a request is sent to.
type Service string

const (
	ServiceAuth   Service = "auth"
	ServiceWallet Service = "wallet"
)

// Request describes one outbound call.
type Request struct {
	Service   Service
	Method    string
	Path      string
	Query     url.Values
	Body      any
	Headers   map[string]string
	Anonymous bool
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(gateway *Gateway) {
		if client != nil {
			gateway.httpClient = client
		}
	}
}

// WithLogger wires a zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(gateway *Gateway) {
		if logger != nil {
			gateway.logger = logger
		}
	}
}

// WithRefreshPath overrides the auth-service refresh endpoint.
func WithRefreshPath(path string) Option {
	return func(gateway *Gateway) {
		if strings.TrimSpace(path) != "" {
			gateway.refreshPath = path
		}
	}
}

// Gateway wraps outbound calls with bearer injection, JSON negotiation and a
// single refresh-and-retry cycle on 401.
type Gateway struct {
	baseURLs     map[Service]string
	tokens       TokenStore
	httpClient   *http.Client
	logger       *zap.Logger
	refreshPath  string
	refreshGroup singleflight.Group
}

// New wires a Gateway for the auth and wallet services.
func New(authBaseURL string, walletBaseURL string, tokens TokenStore, options ...Option) (*Gateway, error) {
	if tokens == nil {
		return nil, fmt.Errorf("%w: token store is nil", ErrInvalidConfig)
	}
	authURL, err := normalizeBaseURL(authBaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: auth base url: %v", ErrInvalidConfig, err)
	}
	walletURL, err := normalizeBaseURL(walletBaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: wallet base url: %v", ErrInvalidConfig, err)
	}
	gateway := &Gateway{
		baseURLs:    map[Service]string{ServiceAuth: authURL, ServiceWallet: walletURL},
		tokens:      tokens,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		logger:      zap.NewNop(),
		refreshPath: defaultRefreshPath,
	}
	for _, option := range options {
		if option != nil {
			option(gateway)
		}
	}
	return gateway, nil
}

// Do issues request and returns the raw JSON body of a successful response.
func (gateway *Gateway) Do(ctx context.Context, request Request) (json.RawMessage, error) {
	bearer := ""
	if !request.Anonymous {
		pair, err := gateway.tokens.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load tokens: %w", err)
		}
		bearer = pair.AccessToken
	}
	body, err := gateway.send(ctx, request, bearer)
	if err == nil {
		return body, nil
	}
	if bearer == "" || !IsUnauthorized(err) {
		return nil, err
	}
	return gateway.recoverUnauthorized(ctx, request, bearer, err)
}

func (gateway *Gateway) recoverUnauthorized(ctx context.Context, request Request, staleBearer string, original error) (json.RawMessage, error) {
	pair, err := gateway.tokens.Load(ctx)
	if err != nil {
		return nil, original
	}
	var freshBearer string
	switch {
	case pair.AccessToken != "" && pair.AccessToken != staleBearer:
		// Another caller already refreshed.
		freshBearer = pair.AccessToken
	case pair.RefreshToken == "":
		gateway.logger.Info("no refresh token, clearing session tokens", zap.String("path", request.Path))
		gateway.clearTokens(ctx)
		return nil, original
	default:
		refreshed, refreshErr := gateway.refresh(ctx, pair.RefreshToken)
		if refreshErr != nil && ctx.Err() != nil {
			return nil, refreshErr
		}
		if refreshErr != nil {
			gateway.logger.Warn("token refresh failed, clearing session tokens", zap.Error(refreshErr))
			gateway.clearTokens(ctx)
			return nil, original
		}
		freshBearer = refreshed.AccessToken
	}
	body, retryErr := gateway.send(ctx, request, freshBearer)
	if retryErr != nil {
		if IsUnauthorized(retryErr) {
			gateway.clearTokens(ctx)
		}
		return nil, retryErr
	}
	return body, nil
}

// refresh exchanges refreshToken for a new pair. The exchange runs detached from
// ctx so a caller that gives up does not fail the callers sharing the flight.
func (gateway *Gateway) refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	results := gateway.refreshGroup.DoChan(refreshToken, func() (any, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultTimeout)
		defer cancel()
		body, err := gateway.send(refreshCtx, Request{
			Service:   ServiceAuth,
			Method:    http.MethodPost,
			Path:      gateway.refreshPath,
			Body:      map[string]string{"refreshToken": refreshToken},
			Anonymous: true,
		}, "")
		if err != nil {
			return TokenPair{}, err
		}
		pair, err := parseRefreshedPair(body, refreshToken)
		if err != nil {
			return TokenPair{}, err
		}
		if err := gateway.tokens.Save(refreshCtx, pair); err != nil {
			return TokenPair{}, fmt.Errorf("save tokens: %w", err)
		}
		gateway.logger.Info("token refresh succeeded")
		return pair, nil
	})
	select {
	case <-ctx.Done():
		return TokenPair{}, fmt.Errorf("token refresh abandoned: %w", ctx.Err())
	case result := <-results:
		if result.Err != nil {
			return TokenPair{}, result.Err
		}
		if result.Shared {
			gateway.logger.Debug("joined in-flight token refresh")
		}
		return result.Val.(TokenPair), nil
	}
}

func parseRefreshedPair(body []byte, previousRefreshToken string) (TokenPair, error) {
	access := firstString(body, "accessToken", "token", "data.accessToken", "data.token")
	if access == "" {
		return TokenPair{}, &ShapeError{Endpoint: endpointRefreshToken, Body: body}
	}
	refresh := firstString(body, "refreshToken", "data.refreshToken")
	if refresh == "" {
		refresh = previousRefreshToken
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (gateway *Gateway) clearTokens(ctx context.Context) {
	if err := gateway.tokens.Clear(ctx); err != nil {
		gateway.logger.Error("clear tokens failed", zap.Error(err))
	}
}

func (gateway *Gateway) send(ctx context.Context, request Request, bearer string) (json.RawMessage, error) {
	target, err := gateway.resolveURL(request)
	if err != nil {
		return nil, err
	}
	var bodyReader io.Reader
	if request.Body != nil {
		encoded, err := json.Marshal(request.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}
	method := request.Method
	if method == "" {
		method = http.MethodGet
	}
	httpRequest, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpRequest.Header.Set(headerContentType, contentTypeJSON)
	httpRequest.Header.Set(headerAccept, contentTypeJSON)
	if bearer != "" {
		httpRequest.Header.Set(headerAuthorization, bearerPrefix+bearer)
	}
	for name, value := range request.Headers {
		httpRequest.Header.Set(name, value)
	}

	startedAt := time.Now()
	response, err := gateway.httpClient.Do(httpRequest)
	if err != nil {
		gateway.logger.Warn("request failed", zap.String("method", method), zap.String("path", request.Path), zap.Error(err))
		return nil, fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, request.Path, err)
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrNetwork, err)
	}
	gateway.logger.Debug("response received",
		zap.String("method", method),
		zap.String("path", request.Path),
		zap.Int("status", response.StatusCode),
		zap.Duration("duration", time.Since(startedAt)),
	)

	if !strings.Contains(strings.ToLower(response.Header.Get(headerContentType)), "json") {
		return nil, newResponseFormatError(response.StatusCode, payload)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: response.StatusCode,
			Message:    errorMessage(payload, response.StatusCode),
			Body:       payload,
		}
	}
	if !json.Valid(payload) {
		return nil, &ResponseFormatError{StatusCode: response.StatusCode, Snippet: snippet(payload)}
	}
	return json.RawMessage(payload), nil
}

func (gateway *Gateway) resolveURL(request Request) (string, error) {
	base, ok := gateway.baseURLs[request.Service]
	if !ok {
		return "", fmt.Errorf("%w: unknown service %q", ErrInvalidConfig, request.Service)
	}
	target := base + request.Path
	if len(request.Query) > 0 {
		target += "?" + request.Query.Encode()
	}
	return target, nil
}

func newResponseFormatError(statusCode int, payload []byte) *ResponseFormatError {
	lowered := strings.ToLower(string(payload))
	return &ResponseFormatError{
		StatusCode: statusCode,
		HTML:       strings.Contains(lowered, htmlDoctypeMarker) || strings.Contains(lowered, htmlTagMarker),
		Snippet:    snippet(payload),
	}
}

func errorMessage(payload []byte, statusCode int) string {
	if message := firstString(payload, "message", "error", "error.message"); message != "" {
		return message
	}
	return fmt.Sprintf("HTTP error! status: %d", statusCode)
}

func firstString(payload []byte, paths ...string) string {
	for _, path := range paths {
		result := gjson.GetBytes(payload, path)
		if result.Type == gjson.String && strings.TrimSpace(result.Str) != "" {
			return result.Str
		}
	}
	return ""
}

func snippet(payload []byte) string {
	if len(payload) <= errorSnippetBytes {
		return string(payload)
	}
	return string(payload[:errorSnippetBytes])
}

func normalizeBaseURL(raw string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return "", fmt.Errorf("empty value")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("%q must be absolute", raw)
	}
	return trimmed, nil
}
