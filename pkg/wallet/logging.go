package wallet

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EngineOption configures an Engine instance.
type EngineOption func(*Engine)

// OperationLogger records domain-level events emitted by Engine operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing wallet operation.
type OperationLog struct {
	Operation string
	AssetID   string
	Amount    decimal.Decimal
	Status    string
	Error     error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) EngineOption {
	return func(engine *Engine) {
		engine.operationLogger = logger
	}
}

// WithLogger wires a zap logger for diagnostics.
func WithLogger(logger *zap.Logger) EngineOption {
	return func(engine *Engine) {
		if logger != nil {
			engine.logger = logger
		}
	}
}

// WithCapabilities replaces the default local/backend routing table.
func WithCapabilities(capabilities Capabilities) EngineOption {
	return func(engine *Engine) {
		engine.capabilities = capabilities
	}
}

// ZapOperationLogger forwards operation logs to zap.
type ZapOperationLogger struct {
	logger *zap.Logger
}

// NewZapOperationLogger returns an OperationLogger writing to logger.
func NewZapOperationLogger(logger *zap.Logger) *ZapOperationLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapOperationLogger{logger: logger}
}

// LogOperation writes entry at info level, or warn when it failed.
func (operationLogger *ZapOperationLogger) LogOperation(_ context.Context, entry OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("asset_id", entry.AssetID),
		zap.String("amount", entry.Amount.String()),
		zap.String("status", entry.Status),
	}
	if entry.Error != nil {
		operationLogger.logger.Warn("wallet operation", append(fields, zap.Error(entry.Error))...)
		return
	}
	operationLogger.logger.Info("wallet operation", fields...)
}

func (engine *Engine) logOperation(ctx context.Context, entry OperationLog) {
	if engine.operationLogger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	engine.operationLogger.LogOperation(ctx, entry)
}
