package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MarkoPoloResearchLab/hyperx/internal/app"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/notify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	flagConfig            = "config"
	flagVerbose           = "verbose"
	flagAuthBaseURL       = "auth-base-url"
	flagWalletBaseURL     = "wallet-base-url"
	flagDatabaseURL       = "database-url"
	flagRequestTimeout    = "request-timeout"
	flagSupabaseURL       = "supabase-url"
	flagSupabaseKey       = "supabase-key"
	flagBackendOperations = "backend-operations"
	envPrefix             = "HYPERX"
)

var configFlags = []string{
	flagAuthBaseURL,
	flagWalletBaseURL,
	flagDatabaseURL,
	flagRequestTimeout,
	flagSupabaseURL,
	flagSupabaseKey,
	flagBackendOperations,
}

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "walletctl: %v\n", err)
		os.Exit(1)
	}
}

// cli carries the application opened for the running command.
type cli struct {
	cfg         app.Config
	verbose     bool
	logger      *zap.Logger
	application *app.App
	stop        context.CancelFunc
}

func newRootCommand() *cobra.Command {
	state := &cli{}
	cmd := &cobra.Command{
		Use:           "walletctl",
		Short:         "Session and wallet client for the auth and wallet services",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, state); err != nil {
				return err
			}
			return state.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return state.close()
		},
	}

	flags := cmd.PersistentFlags()
	flags.String(flagConfig, "", "optional YAML config file")
	flags.Bool(flagVerbose, false, "log at info level instead of warn")
	flags.String(flagAuthBaseURL, "", "auth service base URL")
	flags.String(flagWalletBaseURL, "", "wallet service base URL")
	flags.String(flagDatabaseURL, "", "token and cache storage: sqlite://path, postgres://dsn or memory")
	flags.Duration(flagRequestTimeout, 0, "per-request HTTP timeout (e.g. 30s)")
	flags.String(flagSupabaseURL, "", "Supabase project URL for profile storage")
	flags.String(flagSupabaseKey, "", "Supabase anon key")
	flags.String(flagBackendOperations, "", "comma-separated operations executed by the wallet service (send,receive,convert,swap)")

	cmd.AddCommand(
		newStatusCommand(state),
		newSignupCommand(state),
		newVerifyCommand(state),
		newResendCommand(state),
		newBiodataCommand(state),
		newLoginCommand(state),
		newLogoutCommand(state),
		newResetRequestCommand(state),
		newResetPasswordCommand(state),
		newPinCommand(state),
		newBalancesCommand(state),
		newHistoryCommand(state),
		newSendCommand(state),
		newSwapCommand(state),
		newConvertCommand(state),
		newReceiveCommand(state),
		newTransferCommand(state),
		newDepositCommand(state),
	)
	return cmd
}

func loadConfig(cmd *cobra.Command, state *cli) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags := cmd.Root().PersistentFlags()
	for _, flagName := range append([]string{flagConfig, flagVerbose}, configFlags...) {
		if err := v.BindPFlag(flagName, flags.Lookup(flagName)); err != nil {
			return err
		}
	}
	if path := strings.TrimSpace(v.GetString(flagConfig)); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &state.cfg
	cfg.AuthBaseURL = strings.TrimSpace(v.GetString(flagAuthBaseURL))
	cfg.WalletBaseURL = strings.TrimSpace(v.GetString(flagWalletBaseURL))
	cfg.DatabaseURL = strings.TrimSpace(v.GetString(flagDatabaseURL))
	cfg.RequestTimeout = v.GetDuration(flagRequestTimeout)
	cfg.SupabaseURL = strings.TrimSpace(v.GetString(flagSupabaseURL))
	cfg.SupabaseKey = v.GetString(flagSupabaseKey)
	cfg.BackendOperations = app.ParseList(v.GetString(flagBackendOperations))
	state.verbose = v.GetBool(flagVerbose)

	return cfg.Validate()
}

func (state *cli) open(cmd *cobra.Command) error {
	logger, err := newLogger(state.verbose)
	if err != nil {
		return fmt.Errorf("zap init: %w", err)
	}
	state.logger = logger

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	state.stop = stop
	cmd.SetContext(ctx)

	notifier := notify.Fanout{notify.NewLogNotifier(logger.Named("notify")), printer{out: cmd.ErrOrStderr()}}
	application, err := app.New(ctx, state.cfg, logger, notifier)
	if err != nil {
		return err
	}
	state.application = application
	return nil
}

func (state *cli) close() error {
	if state.stop != nil {
		state.stop()
	}
	var err error
	if state.application != nil {
		err = state.application.Close()
	}
	if state.logger != nil {
		_ = state.logger.Sync()
	}
	return err
}

func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if !verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	return config.Build()
}

// printer echoes notifications to the terminal.
type printer struct {
	out io.Writer
}

func (p printer) Notify(notification notify.Notification) {
	marker := "ok"
	if notification.Variant == notify.VariantDestructive {
		marker = "error"
	}
	fmt.Fprintf(p.out, "[%s] %s: %s\n", marker, notification.Title, notification.Description)
}

func printJSON(cmd *cobra.Command, value any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
