package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarkoPoloResearchLab/hyperx/pkg/gateway"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/notify"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/walletapi"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Send routes to the wallet service when send has a backend, else to LocalSend.
func (engine *Engine) Send(ctx context.Context, subjectID string, assetID string, amount decimal.Decimal, address string) bool {
	if engine.capabilities.HasBackend(OperationSend) {
		return engine.SendExternal(ctx, subjectID, assetID, amount, address)
	}
	return engine.LocalSend(ctx, assetID, amount, address)
}

// Convert routes to quote-and-execute when convert has a backend, else to LocalConvert.
func (engine *Engine) Convert(ctx context.Context, subjectID string, fromID string, toID string, amount decimal.Decimal) bool {
	if !engine.capabilities.HasBackend(OperationConvert) {
		return engine.LocalConvert(ctx, fromID, toID, amount)
	}
	quote, err := engine.SwapQuote(ctx, fromID, toID, amount)
	if err != nil {
		engine.notifier.Notify(notify.Failure("Quote Failed", quoteFailureDescription(err)))
		return false
	}
	return engine.ExecuteSwap(ctx, subjectID, quote)
}

// SendExternal submits an on-chain send and refreshes balances then history.
func (engine *Engine) SendExternal(ctx context.Context, subjectID string, assetID string, amount decimal.Decimal, address string) bool {
	asset, ok := engine.asset(assetID)
	if !ok {
		engine.notifier.Notify(notify.Failure("Crypto Not Found", "Selected cryptocurrency not found"))
		engine.logOperation(ctx, OperationLog{Operation: operationSendExternal, AssetID: assetID, Amount: amount, Error: WrapError(operationSendExternal, errorSubjectAsset, errorCodeNotFound, ErrNotFound)})
		return false
	}
	if !amount.IsPositive() {
		engine.notifier.Notify(notify.Failure("Invalid Amount", "Amount must be greater than 0"))
		engine.logOperation(ctx, OperationLog{Operation: operationSendExternal, AssetID: assetID, Amount: amount, Error: WrapError(operationSendExternal, errorSubjectAmount, errorCodeInvalid, ErrInvalidAmount)})
		return false
	}
	currency := strings.ToUpper(asset.ID)
	err := engine.api.SendExternal(ctx, walletapi.SendRequest{
		Currency:  currency,
		Amount:    amount.String(),
		ToAddress: address,
		Chain:     SendChain(currency),
	})
	if err != nil {
		engine.notifier.Notify(notify.Failure("Transaction Failed", remoteFailureDescription(err, "Failed to send cryptocurrency")))
		engine.logOperation(ctx, OperationLog{Operation: operationSendExternal, AssetID: assetID, Amount: amount, Error: WrapError(operationSendExternal, errorSubjectRemote, errorCodeRequestFailed, err)})
		return false
	}
	engine.FetchBalances(ctx, subjectID)
	engine.FetchHistory(ctx, subjectID)
	engine.notifier.Notify(notify.Info("Transaction Successful", fmt.Sprintf("Sent %s %s to %s...", amount.String(), asset.Symbol, preview(address))))
	engine.logOperation(ctx, OperationLog{Operation: operationSendExternal, AssetID: assetID, Amount: amount})
	return true
}

// SwapQuote validates a swap locally and asks the wallet service to price it.
func (engine *Engine) SwapQuote(ctx context.Context, fromID string, toID string, amount decimal.Decimal) (SwapQuote, error) {
	if fromID == toID {
		return SwapQuote{}, WrapError(operationSwapQuote, errorSubjectAsset, errorCodeSameAsset, ErrSameAsset)
	}
	if !amount.IsPositive() {
		return SwapQuote{}, WrapError(operationSwapQuote, errorSubjectAmount, errorCodeInvalid, ErrInvalidAmount)
	}
	from, fromOK := engine.asset(fromID)
	to, toOK := engine.asset(toID)
	if !fromOK || !toOK {
		return SwapQuote{}, WrapError(operationSwapQuote, errorSubjectAsset, errorCodeNotFound, ErrNotFound)
	}
	if from.Balance.LessThan(amount) {
		return SwapQuote{}, WrapError(operationSwapQuote, errorSubjectBalance, errorCodeInsufficient, ErrInsufficientBalance)
	}
	quote, err := engine.api.SwapQuote(ctx, strings.ToUpper(from.Symbol), strings.ToUpper(to.Symbol), amount.String())
	if err != nil {
		return SwapQuote{}, WrapError(operationSwapQuote, errorSubjectRemote, errorCodeRequestFailed, err)
	}
	if quote.FromAmount.IsZero() {
		quote.FromAmount = amount
	}
	return SwapQuote{Quote: quote, FromAssetID: from.ID, ToAssetID: to.ID}, nil
}

// ExecuteSwap executes quote for subjectID and refreshes balances then history.
func (engine *Engine) ExecuteSwap(ctx context.Context, subjectID string, quote SwapQuote) bool {
	logEntry := OperationLog{Operation: operationExecuteSwap, AssetID: quote.FromAssetID, Amount: quote.FromAmount}
	switch {
	case strings.TrimSpace(subjectID) == "":
		engine.notifier.Notify(notify.Failure("Swap Error", "You must be signed in to swap."))
		logEntry.Error = WrapError(operationExecuteSwap, errorSubjectRemote, errorCodeNoSubject, ErrNoSubject)
	case strings.TrimSpace(quote.QuoteID) == "":
		engine.notifier.Notify(notify.Failure("Quote Failed", "Unable to get swap quote. Please try again."))
		logEntry.Error = WrapError(operationExecuteSwap, errorSubjectQuote, errorCodeMissingQuoteID, ErrInvalidQuote)
	}
	if logEntry.Error != nil {
		engine.logOperation(ctx, logEntry)
		return false
	}
	err := engine.api.ExecuteSwap(ctx, walletapi.ExecuteSwapRequest{
		UserID:       subjectID,
		FromCurrency: firstNonEmpty(strings.ToUpper(quote.FromAssetID), quote.FromCurrency),
		ToCurrency:   firstNonEmpty(strings.ToUpper(quote.ToAssetID), quote.ToCurrency),
		FromAmount:   quote.FromAmount.String(),
		QuoteID:      quote.QuoteID,
	})
	if err != nil {
		var rejected *gateway.RejectedError
		title := "Swap Error"
		if errors.As(err, &rejected) {
			title = "Swap Failed"
		}
		engine.notifier.Notify(notify.Failure(title, remoteFailureDescription(err, "The swap could not be completed due to a server error. Please check your balance and try again.")))
		logEntry.Error = WrapError(operationExecuteSwap, errorSubjectRemote, errorCodeRequestFailed, err)
		engine.logOperation(ctx, logEntry)
		return false
	}
	engine.FetchBalances(ctx, subjectID)
	engine.FetchHistory(ctx, subjectID)
	fromSymbol := DisplayAsset(engine.Assets(), quote.FromAssetID).Symbol
	toSymbol := DisplayAsset(engine.Assets(), quote.ToAssetID).Symbol
	engine.notifier.Notify(notify.Info("Swap Successful", fmt.Sprintf("Successfully swapped %s %s to %s", quote.FromAmount.String(), fromSymbol, toSymbol)))
	engine.logOperation(ctx, logEntry)
	return true
}

// DepositAddress returns the receive address of assetID. The wallet service is
// consulted when receive has a backend; the cached address is the fallback.
func (engine *Engine) DepositAddress(ctx context.Context, assetID string, subjectID string) (string, error) {
	cached := engine.Address(assetID)
	metadata, known := LookupMetadata(assetID)
	if !known {
		err := WrapError(operationDepositAddress, errorSubjectAsset, errorCodeNotFound, ErrNotFound)
		engine.logOperation(ctx, OperationLog{Operation: operationDepositAddress, AssetID: assetID, Error: err})
		return "", err
	}
	if engine.capabilities.HasBackend(OperationReceive) && strings.TrimSpace(subjectID) != "" {
		address, err := engine.api.DepositAddress(ctx, strings.ToUpper(metadata.ID), metadata.Chain, subjectID)
		if err == nil {
			engine.logOperation(ctx, OperationLog{Operation: operationDepositAddress, AssetID: assetID})
			return address, nil
		}
		engine.logger.Warn("deposit address lookup failed, using cached address", zap.String("asset_id", assetID), zap.Error(err))
		if cached == addressUnavailable {
			wrapped := WrapError(operationDepositAddress, errorSubjectRemote, errorCodeRequestFailed, err)
			engine.logOperation(ctx, OperationLog{Operation: operationDepositAddress, AssetID: assetID, Error: wrapped})
			return "", wrapped
		}
	}
	if cached == addressUnavailable {
		err := WrapError(operationDepositAddress, errorSubjectAddress, errorCodeNotFound, ErrNotFound)
		engine.logOperation(ctx, OperationLog{Operation: operationDepositAddress, AssetID: assetID, Error: err})
		return "", err
	}
	engine.logOperation(ctx, OperationLog{Operation: operationDepositAddress, AssetID: assetID})
	return cached, nil
}

func remoteFailureDescription(err error, fallback string) string {
	var rejected *gateway.RejectedError
	if errors.As(err, &rejected) {
		if rejected.Message != "" {
			return rejected.Message
		}
		return fallback
	}
	var statusErr *gateway.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return statusErr.Message
	}
	if errors.Is(err, gateway.ErrNetwork) {
		return "Network error. Please try again."
	}
	return fallback
}

func quoteFailureDescription(err error) string {
	switch {
	case errors.Is(err, ErrSameAsset):
		return "Cannot swap the same cryptocurrency."
	case errors.Is(err, ErrInsufficientBalance):
		return "Insufficient balance"
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrNotFound):
		return "Please fill in all fields with valid values."
	default:
		return "Unable to get swap quote. Please try again."
	}
}

func preview(address string) string {
	if len(address) <= addressPreviewLength {
		return address
	}
	return address[:addressPreviewLength]
}
