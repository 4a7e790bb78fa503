package wallet

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/hyperx/pkg/notify"
	"github.com/shopspring/decimal"
)

// conversionFeeRate is the share of value withheld by a local conversion.
var conversionFeeRate = decimal.New(1, -2)

// mutationError pairs a wrapped domain error with the notification shown for it.
type mutationError struct {
	err          error
	notification notify.Notification
}

func (mutation *mutationError) Error() string {
	return mutation.err.Error()
}

func (mutation *mutationError) Unwrap() error {
	return mutation.err
}

func reject(operation string, subject string, code string, sentinel error, title string, description string) error {
	return &mutationError{
		err:          WrapError(operation, subject, code, sentinel),
		notification: notify.Failure(title, description),
	}
}

// mutation computes the next asset list and the transaction to prepend.
type mutation func(assets []AssetBalance) ([]AssetBalance, Transaction, error)

// LocalSend debits assetID and records a send to address.
func (engine *Engine) LocalSend(ctx context.Context, assetID string, amount decimal.Decimal, address string) bool {
	transaction, err := engine.apply(ctx, sendMutation(operationLocalSend, assetID, amount, address, engine.nowFn))
	if err != nil {
		return engine.fail(ctx, operationLocalSend, assetID, amount, err)
	}
	engine.notifier.Notify(notify.Info("Transaction Successful", fmt.Sprintf("Sent %s %s to %s...", amount.String(), transaction.Symbol, preview(address))))
	engine.logOperation(ctx, OperationLog{Operation: operationLocalSend, AssetID: assetID, Amount: amount})
	return true
}

// InternalTransfer debits assetID and records a send to another platform user.
func (engine *Engine) InternalTransfer(ctx context.Context, assetID string, amount decimal.Decimal, recipient string) bool {
	trimmed := strings.TrimSpace(recipient)
	if trimmed == "" {
		return engine.fail(ctx, operationInternalTransfer, assetID, amount,
			reject(operationInternalTransfer, errorSubjectAddress, errorCodeInvalid, ErrInvalidAddress, "Missing Recipient", "Please enter a User ID or email address."))
	}
	transaction, err := engine.apply(ctx, sendMutation(operationInternalTransfer, assetID, amount, internalAddressLabel+trimmed, engine.nowFn))
	if err != nil {
		return engine.fail(ctx, operationInternalTransfer, assetID, amount, err)
	}
	engine.notifier.Notify(notify.Info("Internal Transfer Successful", fmt.Sprintf("Sent %s %s to %s", amount.String(), transaction.Symbol, trimmed)))
	engine.logOperation(ctx, OperationLog{Operation: operationInternalTransfer, AssetID: assetID, Amount: amount})
	return true
}

// LocalReceive credits assetID and records a receive from fromAddress.
func (engine *Engine) LocalReceive(ctx context.Context, assetID string, amount decimal.Decimal, fromAddress string) bool {
	transaction, err := engine.apply(ctx, func(assets []AssetBalance) ([]AssetBalance, Transaction, error) {
		if !amount.IsPositive() {
			return nil, Transaction{}, reject(operationLocalReceive, errorSubjectAmount, errorCodeInvalid, ErrInvalidAmount, "Invalid Amount", "Amount must be greater than 0")
		}
		index := indexOf(assets, assetID)
		if index < 0 {
			return nil, Transaction{}, reject(operationLocalReceive, errorSubjectAsset, errorCodeNotFound, ErrNotFound, "Crypto Not Found", "Selected cryptocurrency not found")
		}
		asset := assets[index]
		assets[index].Balance = asset.Balance.Add(amount)
		address := strings.TrimSpace(fromAddress)
		if address == "" {
			address = addressExternal
		}
		return assets, Transaction{
			ID:        localTransactionID(engine.nowFn),
			Type:      TransactionReceive,
			CryptoID:  asset.ID,
			Symbol:    asset.Symbol,
			Amount:    amount,
			Address:   address,
			Timestamp: timestamp(engine.nowFn),
			Value:     amount.Mul(asset.ReferencePrice),
		}, nil
	})
	if err != nil {
		return engine.fail(ctx, operationLocalReceive, assetID, amount, err)
	}
	engine.notifier.Notify(notify.Info("Funds Received", fmt.Sprintf("Received %s %s", amount.String(), transaction.Symbol)))
	engine.logOperation(ctx, OperationLog{Operation: operationLocalReceive, AssetID: assetID, Amount: amount})
	return true
}

// LocalConvert moves value from one asset to another, withholding a 1% fee.
func (engine *Engine) LocalConvert(ctx context.Context, fromID string, toID string, amount decimal.Decimal) bool {
	transaction, err := engine.apply(ctx, func(assets []AssetBalance) ([]AssetBalance, Transaction, error) {
		if !amount.IsPositive() {
			return nil, Transaction{}, reject(operationLocalConvert, errorSubjectAmount, errorCodeInvalid, ErrInvalidAmount, "Invalid Amount", "Amount must be greater than 0")
		}
		fromIndex := indexOf(assets, fromID)
		toIndex := indexOf(assets, toID)
		if fromIndex < 0 || toIndex < 0 {
			return nil, Transaction{}, reject(operationLocalConvert, errorSubjectAsset, errorCodeNotFound, ErrNotFound, "Crypto Not Found", "One or both selected cryptocurrencies not found")
		}
		if fromIndex == toIndex {
			return nil, Transaction{}, reject(operationLocalConvert, errorSubjectAsset, errorCodeSameAsset, ErrSameAsset, "Invalid Swap", "Cannot swap the same cryptocurrency.")
		}
		from := assets[fromIndex]
		to := assets[toIndex]
		if from.Balance.LessThan(amount) {
			return nil, Transaction{}, reject(operationLocalConvert, errorSubjectBalance, errorCodeInsufficient, ErrInsufficientBalance, "Insufficient Balance", fmt.Sprintf("You don't have enough %s", from.Symbol))
		}
		if !to.ReferencePrice.IsPositive() {
			return nil, Transaction{}, reject(operationLocalConvert, errorSubjectAsset, errorCodeInvalid, ErrInvalidAmount, "Conversion Failed", fmt.Sprintf("No price available for %s", to.Symbol))
		}
		fromValue, toAmount := ConversionAmounts(amount, from.ReferencePrice, to.ReferencePrice)
		assets[fromIndex].Balance = from.Balance.Sub(amount)
		assets[toIndex].Balance = to.Balance.Add(toAmount)
		fromAmount := amount
		return assets, Transaction{
			ID:           localTransactionID(engine.nowFn),
			Type:         TransactionConvert,
			CryptoID:     from.ID,
			Symbol:       from.Symbol,
			Amount:       amount,
			Timestamp:    timestamp(engine.nowFn),
			Value:        fromValue,
			FromCryptoID: from.ID,
			ToCryptoID:   to.ID,
			FromSymbol:   from.Symbol,
			ToSymbol:     to.Symbol,
			FromAmount:   &fromAmount,
			ToAmount:     &toAmount,
		}, nil
	})
	if err != nil {
		return engine.fail(ctx, operationLocalConvert, fromID, amount, err)
	}
	engine.notifier.Notify(notify.Info("Conversion Successful", fmt.Sprintf("Converted %s %s to %s %s",
		amount.String(), transaction.FromSymbol, transaction.ToAmount.StringFixed(quoteAmountDecimals), transaction.ToSymbol)))
	engine.logOperation(ctx, OperationLog{Operation: operationLocalConvert, AssetID: fromID, Amount: amount})
	return true
}

// ConversionAmounts returns the value converted and the amount credited:
// toAmount = amount*fromPrice*(1-fee)/toPrice.
func ConversionAmounts(amount decimal.Decimal, fromPrice decimal.Decimal, toPrice decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	fromValue := amount.Mul(fromPrice)
	netValue := fromValue.Sub(fromValue.Mul(conversionFeeRate))
	return fromValue, netValue.Div(toPrice)
}

func sendMutation(operation string, assetID string, amount decimal.Decimal, address string, now func() time.Time) mutation {
	return func(assets []AssetBalance) ([]AssetBalance, Transaction, error) {
		if len(strings.TrimSpace(address)) < minimumAddressLength {
			return nil, Transaction{}, reject(operation, errorSubjectAddress, errorCodeInvalid, ErrInvalidAddress, "Invalid Address", "Please enter a valid wallet address")
		}
		if !amount.IsPositive() {
			return nil, Transaction{}, reject(operation, errorSubjectAmount, errorCodeInvalid, ErrInvalidAmount, "Invalid Amount", "Amount must be greater than 0")
		}
		index := indexOf(assets, assetID)
		if index < 0 {
			return nil, Transaction{}, reject(operation, errorSubjectAsset, errorCodeNotFound, ErrNotFound, "Crypto Not Found", "Selected cryptocurrency not found")
		}
		asset := assets[index]
		if asset.Balance.LessThan(amount) {
			return nil, Transaction{}, reject(operation, errorSubjectBalance, errorCodeInsufficient, ErrInsufficientBalance, "Insufficient Balance", fmt.Sprintf("You don't have enough %s", asset.Symbol))
		}
		assets[index].Balance = asset.Balance.Sub(amount)
		return assets, Transaction{
			ID:        localTransactionID(now),
			Type:      TransactionSend,
			CryptoID:  asset.ID,
			Symbol:    asset.Symbol,
			Amount:    amount,
			Address:   address,
			Timestamp: timestamp(now),
			Value:     amount.Mul(asset.ReferencePrice),
		}, nil
	}
}

// apply runs change against a copy of the asset list under the write lock,
// prepends the resulting transaction and persists both cache keys.
func (engine *Engine) apply(ctx context.Context, change mutation) (Transaction, error) {
	engine.mu.Lock()
	assets, transaction, err := change(cloneAssets(engine.assets))
	if err != nil {
		engine.mu.Unlock()
		return Transaction{}, err
	}
	transactions := make([]Transaction, 0, len(engine.transactions)+1)
	transactions = append(transactions, transaction)
	transactions = append(transactions, engine.transactions...)
	engine.assets = assets
	engine.transactions = transactions
	assetsSnapshot := cloneAssets(assets)
	transactionsSnapshot := cloneTransactions(transactions)
	engine.mu.Unlock()

	engine.persistAssets(ctx, assetsSnapshot)
	engine.persistTransactions(ctx, transactionsSnapshot)
	return transaction, nil
}

func (engine *Engine) fail(ctx context.Context, operation string, assetID string, amount decimal.Decimal, err error) bool {
	var rejected *mutationError
	if errors.As(err, &rejected) {
		engine.notifier.Notify(rejected.notification)
		err = rejected.err
	}
	engine.logOperation(ctx, OperationLog{Operation: operation, AssetID: assetID, Amount: amount, Error: err})
	return false
}

func indexOf(assets []AssetBalance, assetID string) int {
	for index, asset := range assets {
		if asset.ID == assetID {
			return index
		}
	}
	return -1
}

func localTransactionID(now func() time.Time) string {
	return strconv.FormatInt(now().UnixNano(), 10)
}

func timestamp(now func() time.Time) string {
	return now().UTC().Format(time.RFC3339Nano)
}
