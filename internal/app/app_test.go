package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/hyperx/internal/demobackend"
	"github.com/MarkoPoloResearchLab/hyperx/internal/profile"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/auth"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/notify"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	flowEmail    = "flow@example.com"
	flowPassword = "flow-password"
	flowCode     = "246810"
	flowAddress  = "0x1234567890abcdef1234"
)

func startDemoServices(test *testing.T) *httptest.Server {
	test.Helper()
	cfg := demobackend.Config{SigningKey: "app-test-key", VerificationCode: flowCode}
	if err := cfg.Validate(); err != nil {
		test.Fatalf("demo config: %v", err)
	}
	server := httptest.NewServer(demobackend.NewRouter(cfg, demobackend.NewHandler(cfg, zap.NewNop(), time.Now)))
	test.Cleanup(server.Close)
	return server
}

func openApp(test *testing.T, cfg Config, recorder *notify.Recorder) *App {
	test.Helper()
	application, err := New(context.Background(), cfg, zap.NewNop(), recorder)
	if err != nil {
		test.Fatalf("app init failed: %v", err)
	}
	return application
}

func TestSessionAndWalletFlowAgainstDemoServices(test *testing.T) {
	server := startDemoServices(test)
	cfg := Config{
		AuthBaseURL:    server.URL,
		WalletBaseURL:  server.URL,
		DatabaseURL:    "sqlite://" + filepath.Join(test.TempDir(), "wallet.db"),
		RequestTimeout: 5 * time.Second,
	}
	ctx := context.Background()
	recorder := &notify.Recorder{}
	application := openApp(test, cfg, recorder)

	if outcome := application.Resume(ctx); outcome.Route != auth.RouteLogin {
		test.Fatalf("expected login route without stored tokens, got %s", outcome.Route)
	}
	if _, err := application.SubjectID(); err != ErrNotSignedIn {
		test.Fatalf("expected ErrNotSignedIn, got %v", err)
	}

	if !application.Auth.Signup(ctx, flowEmail, flowPassword) {
		test.Fatalf("signup failed: %+v", recorder.Notifications())
	}
	if outcome := application.Auth.VerifyEmail(ctx, flowEmail, flowCode); outcome.Route != auth.RouteBiodata {
		test.Fatalf("expected biodata route after verification, got %s (%v)", outcome.Route, outcome.Err)
	}
	outcome := application.Auth.Login(ctx, flowEmail, flowPassword)
	if outcome.Route != auth.RoutePinSetup || outcome.Session.Email != flowEmail {
		test.Fatalf("expected pin setup for a new account, got %+v", outcome)
	}
	if !application.Auth.CreatePin(ctx, "1357", "1357") {
		test.Fatalf("create pin failed: %+v", recorder.Notifications())
	}
	subjectID, err := application.SubjectID()
	if err != nil {
		test.Fatalf("subject lookup failed: %v", err)
	}

	if err := application.Wallet.Refresh(ctx, subjectID); err != nil {
		test.Fatalf("wallet refresh failed: %v", err)
	}
	if balance := application.Wallet.Balance("usdc"); !balance.Equal(decimal.NewFromInt(100)) {
		test.Fatalf("expected starter usdc balance, got %s", balance)
	}
	if !application.Wallet.Send(ctx, subjectID, "usdc", decimal.NewFromInt(10), flowAddress) {
		test.Fatalf("send failed: %+v", recorder.Notifications())
	}
	if balance := application.Wallet.Balance("usdc"); !balance.Equal(decimal.NewFromInt(90)) {
		test.Fatalf("expected 90 usdc after send, got %s", balance)
	}
	if transactions := application.Wallet.Transactions(); len(transactions) != 1 {
		test.Fatalf("expected one transaction after send, got %d", len(transactions))
	}
	if err := application.Close(); err != nil {
		test.Fatalf("close failed: %v", err)
	}

	reopened := openApp(test, cfg, &notify.Recorder{})
	defer func() { _ = reopened.Close() }()
	if balance := reopened.Wallet.Balance("usdc"); !balance.Equal(decimal.NewFromInt(90)) {
		test.Fatalf("expected cached usdc balance after reopen, got %s", balance)
	}
	resumed := reopened.Resume(ctx)
	if resumed.Route != auth.RouteDashboard || resumed.Session.SubjectID != subjectID {
		test.Fatalf("expected dashboard for stored session, got %+v", resumed)
	}

	reopened.Auth.Logout(ctx)
	if outcome := reopened.Resume(ctx); outcome.Route != auth.RouteLogin {
		test.Fatalf("expected login route after logout, got %s", outcome.Route)
	}
}

func TestResumeOfflineKeepsTokens(test *testing.T) {
	server := startDemoServices(test)
	cfg := Config{
		AuthBaseURL:    server.URL,
		WalletBaseURL:  server.URL,
		DatabaseURL:    DatabaseMemory,
		RequestTimeout: 5 * time.Second,
	}
	ctx := context.Background()
	application := openApp(test, cfg, &notify.Recorder{})
	defer func() { _ = application.Close() }()

	if !application.Auth.Signup(ctx, flowEmail, flowPassword) {
		test.Fatalf("signup failed")
	}
	application.Auth.VerifyEmail(ctx, flowEmail, flowCode)
	server.Close()

	outcome := application.Resume(ctx)
	if outcome.Route != auth.RouteOffline {
		test.Fatalf("expected offline route, got %s", outcome.Route)
	}
	pair, err := application.Store.Load(ctx)
	if err != nil || pair.AccessToken == "" {
		test.Fatalf("expected tokens to survive an offline check, got %+v %v", pair, err)
	}
}

func TestProfileAdapterMapsBiodata(test *testing.T) {
	var captured []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/rest/v1/user_profiles" {
			writer.WriteHeader(http.StatusNotFound)
			return
		}
		payload, _ := io.ReadAll(request.Body)
		_ = json.Unmarshal(payload, &captured)
		writer.WriteHeader(http.StatusCreated)
		_, _ = writer.Write(payload)
	}))
	defer server.Close()

	client, err := profile.New(server.URL, "anon-key")
	if err != nil {
		test.Fatalf("profile client init failed: %v", err)
	}
	adapter := profileAdapter{client: client}
	err = adapter.SaveProfile(context.Background(), auth.Profile{
		UserID: "user-1",
		Email:  "ada@example.com",
		Biodata: auth.Biodata{
			FirstName:      "Ada",
			LastName:       "Lovelace",
			IdentityType:   "NIN",
			IdentityNumber: "12345678901",
		},
	})
	if err != nil {
		test.Fatalf("save profile failed: %v", err)
	}
	if len(captured) != 1 {
		test.Fatalf("expected one inserted row, got %d", len(captured))
	}
	row := captured[0]
	if row["user_id"] != "user-1" || row["first_name"] != "Ada" || row["identity_type"] != "NIN" || row["identity_number"] != "12345678901" {
		test.Fatalf("unexpected row %v", row)
	}
}
