// Package demobackend serves in-memory stand-ins for the auth and wallet services.
package demobackend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	contextKeyClaims = "access_claims"
	headerRequestID  = "X-Request-ID"
)

// Run boots the demo services using the supplied configuration.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("zap init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	handler := NewHandler(cfg, logger, time.Now)
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           NewRouter(cfg, handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("demo services listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler serves both demo services from one in-memory ledger.
type Handler struct {
	logger *zap.Logger
	state  *ledger
	tokens tokenIssuer
}

// NewHandler constructs a Handler. cfg must already be validated.
func NewHandler(cfg Config, logger *zap.Logger, now func() time.Time) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Handler{
		logger: logger,
		state:  newLedger(cfg.VerificationCode, cfg.RefreshTokenTTL, now),
		tokens: tokenIssuer{
			signingKey: []byte(cfg.SigningKey),
			issuer:     cfg.Issuer,
			ttl:        cfg.AccessTokenTTL,
			nowFn:      now,
		},
	}
}

// NewRouter registers the auth and wallet routes.
func NewRouter(cfg Config, handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(accessLog(handler.logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
		ExposeHeaders:    []string{headerRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/v1/auth/register", handler.handleRegister)
	router.POST("/v1/auth/login", handler.handleLogin)
	router.POST("/v1/auth/verify-otp", handler.handleVerifyOTP)
	router.POST("/v1/auth/resend-otp", handler.handleResendOTP)
	router.POST("/auth/v2/refresh-token", handler.handleRefresh)
	router.POST("/auth/v2/request-password-reset", handler.handleRequestPasswordReset)
	router.POST("/auth/v2/reset-password", handler.handleResetPassword)

	authenticated := router.Group("/")
	authenticated.Use(handler.requireBearer())
	authenticated.GET("/v1/auth/user", handler.handleCurrentUser)
	authenticated.POST("/auth/v2/logout", handler.handleLogout)
	authenticated.GET("/v1/pin/status", handler.handlePinStatus)
	authenticated.POST("/v1/pin/create", handler.handlePinCreate)
	authenticated.POST("/v1/pin/verify", handler.handlePinVerify)
	authenticated.POST("/v1/pin/login", handler.handlePinLogin)

	authenticated.GET("/v1/wallet/balances/:userId", handler.handleBalances)
	authenticated.GET("/v1/wallet/history", handler.handleHistory)
	authenticated.POST("/v1/send/external", handler.handleSendExternal)
	authenticated.POST("/v1/wallet/swap/quote", handler.handleSwapQuote)
	authenticated.POST("/v1/wallet/swap/execute", handler.handleSwapExecute)
	authenticated.GET("/v1/receive/address", handler.handleDepositAddress)

	return router
}

func requestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		identifier := strings.TrimSpace(ctx.GetHeader(headerRequestID))
		if identifier == "" {
			identifier = uuid.NewString()
		}
		ctx.Set(headerRequestID, identifier)
		ctx.Header(headerRequestID, identifier)
		ctx.Next()
	}
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		started := time.Now()
		ctx.Next()
		logger.Info("request",
			zap.String("request_id", ctx.GetString(headerRequestID)),
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.FullPath()),
			zap.Int("status", ctx.Writer.Status()),
			zap.Duration("duration", time.Since(started)),
		)
	}
}

func (handler *Handler) requireBearer() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(raw) == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, failure("Missing bearer token"))
			return
		}
		claims, err := handler.tokens.parse(strings.TrimSpace(raw))
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, failure("Invalid or expired token"))
			return
		}
		ctx.Set(contextKeyClaims, claims)
		ctx.Next()
	}
}

func getClaims(ctx *gin.Context) *accessClaims {
	claimsValue, ok := ctx.Get(contextKeyClaims)
	if !ok {
		return nil
	}
	claims, _ := claimsValue.(*accessClaims)
	return claims
}

// ownsSubject rejects requests whose userId differs from the bearer subject.
func ownsSubject(ctx *gin.Context, userID string) bool {
	claims := getClaims(ctx)
	if claims == nil {
		ctx.JSON(http.StatusUnauthorized, failure("Missing bearer token"))
		return false
	}
	if strings.TrimSpace(userID) != "" && userID != claims.Subject {
		ctx.JSON(http.StatusForbidden, failure("Forbidden"))
		return false
	}
	return true
}

func failure(message string) gin.H {
	return gin.H{"success": false, "message": message}
}

// respondError writes a serviceError with its status; other errors become 500.
func (handler *Handler) respondError(ctx *gin.Context, err error) {
	var rejection *serviceError
	if errors.As(err, &rejection) {
		ctx.JSON(rejection.status, gin.H{"success": false, "message": rejection.message, "error": rejection.message})
		return
	}
	handler.logger.Error("request failed", zap.String("request_id", ctx.GetString(headerRequestID)), zap.Error(err))
	ctx.JSON(http.StatusInternalServerError, failure("Internal server error"))
}
