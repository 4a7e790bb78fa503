package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MarkoPoloResearchLab/hyperx/internal/demobackend"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagListenAddr       = "listen-addr"
	flagAllowedOrigins   = "allowed-origins"
	flagJWTSigningKey    = "jwt-signing-key"
	flagJWTIssuer        = "jwt-issuer"
	flagAccessTokenTTL   = "access-token-ttl"
	flagRefreshTokenTTL  = "refresh-token-ttl"
	flagVerificationCode = "verification-code"
	envPrefix            = "DEMOSERVICES"
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "demoservices: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := demobackend.Config{}
	cmd := &cobra.Command{
		Use:           "demoservices",
		Short:         "In-memory auth and wallet services for local development",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, &cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return demobackend.Run(ctx, cfg)
		},
	}

	cmd.Flags().String(flagListenAddr, ":8081", "HTTP listen address")
	cmd.Flags().String(flagAllowedOrigins, "http://localhost:5173", "comma-separated list of allowed CORS origins")
	cmd.Flags().String(flagJWTSigningKey, "", "HS256 signing key for access tokens (required)")
	cmd.Flags().String(flagJWTIssuer, "hyperx-demo", "issuer written into access tokens")
	cmd.Flags().Duration(flagAccessTokenTTL, 0, "access token lifetime (e.g. 15m)")
	cmd.Flags().Duration(flagRefreshTokenTTL, 0, "refresh token lifetime (e.g. 168h)")
	cmd.Flags().String(flagVerificationCode, "", "fixed email verification code accepted by verify-otp")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *demobackend.Config) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, flagName := range []string{flagListenAddr, flagAllowedOrigins, flagJWTSigningKey, flagJWTIssuer, flagAccessTokenTTL, flagRefreshTokenTTL, flagVerificationCode} {
		if err := v.BindPFlag(flagName, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	if strings.TrimSpace(v.GetString(flagJWTSigningKey)) == "" {
		return fmt.Errorf("%s is required", flagJWTSigningKey)
	}

	cfg.ListenAddr = strings.TrimSpace(v.GetString(flagListenAddr))
	cfg.AllowedOrigins = demobackend.ParseAllowedOrigins(v.GetString(flagAllowedOrigins))
	cfg.SigningKey = v.GetString(flagJWTSigningKey)
	cfg.Issuer = strings.TrimSpace(v.GetString(flagJWTIssuer))
	cfg.AccessTokenTTL = v.GetDuration(flagAccessTokenTTL)
	cfg.RefreshTokenTTL = v.GetDuration(flagRefreshTokenTTL)
	cfg.VerificationCode = strings.TrimSpace(v.GetString(flagVerificationCode))

	return cfg.Validate()
}
