// Package app wires configuration, storage, the HTTP gateway and the orchestrators.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/hyperx/internal/profile"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/auth"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/authapi"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/gateway"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/notify"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/wallet"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/walletapi"
	"go.uber.org/zap"
)

// App holds the wired services of one client session.
type App struct {
	Logger   *zap.Logger
	Notifier notify.Notifier
	Store    Store
	Gateway  *gateway.Gateway
	Auth     *auth.Orchestrator
	Wallet   *wallet.Engine

	cleanup func() error
}

// New validates cfg, opens storage and wires every service.
func New(ctx context.Context, cfg Config, logger *zap.Logger, notifier notify.Notifier) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	capabilities, err := cfg.Capabilities()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	store, cleanup, err := OpenStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	application, err := wire(cfg, capabilities, store, logger, notifier)
	if err != nil {
		_ = cleanup()
		return nil, err
	}
	application.cleanup = cleanup

	if err := application.Wallet.Rehydrate(ctx); err != nil {
		logger.Warn("wallet cache rehydrate failed", zap.Error(err))
	}
	return application, nil
}

func wire(cfg Config, capabilities wallet.Capabilities, store Store, logger *zap.Logger, notifier notify.Notifier) (*App, error) {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	requestGateway, err := gateway.New(cfg.AuthBaseURL, cfg.WalletBaseURL, store,
		gateway.WithHTTPClient(httpClient),
		gateway.WithLogger(logger.Named("gateway")),
	)
	if err != nil {
		return nil, fmt.Errorf("gateway init: %w", err)
	}
	authClient, err := authapi.New(requestGateway)
	if err != nil {
		return nil, fmt.Errorf("auth api init: %w", err)
	}
	walletClient, err := walletapi.New(requestGateway)
	if err != nil {
		return nil, fmt.Errorf("wallet api init: %w", err)
	}

	authOptions := []auth.Option{auth.WithLogger(logger.Named("auth"))}
	if cfg.ProfilesEnabled() {
		profiles, err := profile.New(cfg.SupabaseURL, cfg.SupabaseKey,
			profile.WithHTTPClient(httpClient),
			profile.WithLogger(logger.Named("profile")),
		)
		if err != nil {
			return nil, fmt.Errorf("profile store init: %w", err)
		}
		authOptions = append(authOptions, auth.WithProfileStore(profileAdapter{client: profiles}))
	}
	orchestrator, err := auth.New(authClient, store, notifier, authOptions...)
	if err != nil {
		return nil, fmt.Errorf("auth orchestrator init: %w", err)
	}

	walletLogger := logger.Named("wallet")
	engine, err := wallet.NewEngine(walletClient, store, notifier, time.Now,
		wallet.WithLogger(walletLogger),
		wallet.WithOperationLogger(wallet.NewZapOperationLogger(walletLogger)),
		wallet.WithCapabilities(capabilities),
	)
	if err != nil {
		return nil, fmt.Errorf("wallet engine init: %w", err)
	}

	return &App{
		Logger:   logger,
		Notifier: notifier,
		Store:    store,
		Gateway:  requestGateway,
		Auth:     orchestrator,
		Wallet:   engine,
	}, nil
}

// Resume re-establishes the stored session and, when one exists, refreshes the wallet.
func (application *App) Resume(ctx context.Context) auth.Outcome {
	outcome := application.Auth.CheckAuthStatus(ctx)
	if outcome.Session.SubjectID == "" {
		return outcome
	}
	if err := application.Wallet.Refresh(ctx, outcome.Session.SubjectID); err != nil {
		application.Logger.Warn("wallet refresh failed", zap.Error(err))
	}
	return outcome
}

// SubjectID returns the signed-in subject or ErrNotSignedIn.
func (application *App) SubjectID() (string, error) {
	current := application.Auth.Session()
	if current.SubjectID == "" {
		return "", ErrNotSignedIn
	}
	return current.SubjectID, nil
}

// Close releases the store.
func (application *App) Close() error {
	if application.cleanup == nil {
		return nil
	}
	return application.cleanup()
}

// ErrNotSignedIn reports a wallet command issued without a session.
var ErrNotSignedIn = errors.New("not signed in")

type profileAdapter struct {
	client *profile.Client
}

func (adapter profileAdapter) SaveProfile(ctx context.Context, userProfile auth.Profile) error {
	return adapter.client.SaveProfile(ctx, profile.UserProfile{
		UserID:         userProfile.UserID,
		Email:          userProfile.Email,
		FirstName:      userProfile.Biodata.FirstName,
		LastName:       userProfile.Biodata.LastName,
		IdentityType:   userProfile.Biodata.IdentityType,
		IdentityNumber: userProfile.Biodata.IdentityNumber,
	})
}
