// Package profile stores user profile rows in Supabase through its PostgREST API.
package profile

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

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	// TableUserProfiles is the table biodata rows are written to.
	TableUserProfiles = "user_profiles"

	restPrefix         = "/rest/v1/"
	headerAPIKey       = "apikey"
	headerPrefer       = "Prefer"
	preferRepresenting = "return=representation"
	maxErrorBody       = 64 << 10
	defaultTimeout     = 30 * time.Second
)

var (
	// ErrInvalidConfig reports a missing project url or key.
	ErrInvalidConfig = errors.New("invalid profile store config")
	// ErrRequest reports a transport failure talking to the project.
	ErrRequest = errors.New("profile store request failed")
)

// UserProfile is one row of the user_profiles table.
type UserProfile struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	IdentityType   string `json:"identity_type"`
	IdentityNumber string `json:"identity_number"`
}

// InsertError carries the PostgREST rejection.
type InsertError struct {
	Table      string
	StatusCode int
	Message    string
}

func (insertError *InsertError) Error() string {
	return fmt.Sprintf("insert into %s failed with status %d: %s", insertError.Table, insertError.StatusCode, insertError.Message)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *Client) {
		if httpClient != nil {
			client.httpClient = httpClient
		}
	}
}

// WithLogger sets the zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(client *Client) {
		if logger != nil {
			client.logger = logger
		}
	}
}

// Client talks to a Supabase project's REST endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// New constructs a Client for projectURL using apiKey for both apikey and bearer headers.
func New(projectURL string, apiKey string, options ...Option) (*Client, error) {
	trimmedURL := strings.TrimRight(strings.TrimSpace(projectURL), "/")
	parsed, err := url.Parse(trimmedURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: project url %q", ErrInvalidConfig, projectURL)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: api key is required", ErrInvalidConfig)
	}
	client := &Client{
		baseURL:    trimmedURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, option := range options {
		if option != nil {
			option(client)
		}
	}
	return client, nil
}

// Insert posts row into table and returns the representation PostgREST sends back.
func (client *Client) Insert(ctx context.Context, table string, row any) (json.RawMessage, error) {
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("%w: table is required", ErrInvalidConfig)
	}
	payload, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("encode %s row: %w", table, err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, client.baseURL+restPrefix+url.PathEscape(table), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	request.Header.Set(headerAPIKey, client.apiKey)
	request.Header.Set("Authorization", "Bearer "+client.apiKey)
	request.Header.Set(headerPrefer, preferRepresenting)

	response, err := client.httpClient.Do(request)
	if err != nil {
		client.logger.Warn("profile insert failed", zap.String("table", table), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer response.Body.Close()
	body, err := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		message := gjson.GetBytes(body, "message").String()
		if message == "" {
			message = strings.TrimSpace(string(body))
		}
		if message == "" {
			message = http.StatusText(response.StatusCode)
		}
		client.logger.Warn("profile insert rejected",
			zap.String("table", table),
			zap.Int("status", response.StatusCode),
			zap.String("message", message),
		)
		return nil, &InsertError{Table: table, StatusCode: response.StatusCode, Message: message}
	}
	return json.RawMessage(body), nil
}

// SaveProfile inserts profile into user_profiles.
func (client *Client) SaveProfile(ctx context.Context, profile UserProfile) error {
	_, err := client.Insert(ctx, TableUserProfiles, []UserProfile{profile})
	return err
}
