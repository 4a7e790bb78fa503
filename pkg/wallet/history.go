package wallet

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/hyperx/pkg/walletapi"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

var historyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("hyperx:wallet-history"))

func transformHistory(records []walletapi.HistoryRecord, now func() time.Time) []Transaction {
	transactions := make([]Transaction, 0, len(records))
	for _, record := range records {
		transactions = append(transactions, transformRecord(record, now))
	}
	return transactions
}

func transformRecord(record walletapi.HistoryRecord, now func() time.Time) Transaction {
	metadata, resolved := ResolveMetadata(record.Currency)
	humanAmount := preferredAmount(record.HumanAmount, record.Amount)

	transaction := Transaction{
		ID:          record.ID,
		Type:        ParseTransactionType(record.Type),
		CryptoID:    firstNonEmpty(record.CryptoID, strings.ToLower(record.Currency)),
		Symbol:      firstNonEmpty(record.Symbol, record.Currency),
		Amount:      humanAmount,
		RawAmount:   record.Amount,
		Address:     firstNonEmpty(record.Address, record.ToAddress, addressUnknown),
		Timestamp:   firstNonEmpty(record.Timestamp, record.CreatedAt),
		FromAddress: record.FromAddress,
		ToAddress:   record.ToAddress,
		Direction:   record.Direction,
		Status:      record.Status,
		TxHash:      record.TxHash,
		Metadata:    record.Metadata,
		Currency:    record.Currency,
		Category:    record.Category,
	}
	if resolved {
		transaction.CryptoID = metadata.ID
		transaction.Symbol = metadata.Symbol
	}
	if transaction.ID == "" {
		transaction.ID = uuid.NewSHA1(historyNamespace, record.Raw).String()
	}
	if transaction.Timestamp == "" {
		transaction.Timestamp = now().UTC().Format(time.RFC3339)
	}
	switch {
	case record.Value.Valid:
		transaction.Value = record.Value.Decimal
	case resolved:
		transaction.Value = humanAmount.Mul(metadata.ReferencePrice)
	default:
		transaction.Value = decimal.Zero
	}
	if transaction.Type.IsPaired() {
		applyPairedLegs(&transaction, record)
	}
	return transaction
}

func applyPairedLegs(transaction *Transaction, record walletapi.HistoryRecord) {
	fromMetadata, fromResolved := ResolveMetadata(firstNonEmpty(record.FromCryptoID, record.FromCurrency))
	toMetadata, toResolved := ResolveMetadata(firstNonEmpty(record.ToCryptoID, record.ToCurrency))

	transaction.FromCryptoID = firstNonEmpty(record.FromCryptoID, strings.ToLower(record.FromCurrency))
	transaction.ToCryptoID = firstNonEmpty(record.ToCryptoID, strings.ToLower(record.ToCurrency))
	transaction.FromSymbol = firstNonEmpty(record.FromSymbol, record.FromCurrency)
	transaction.ToSymbol = firstNonEmpty(record.ToSymbol, record.ToCurrency)
	if fromResolved {
		transaction.FromCryptoID = fromMetadata.ID
		transaction.FromSymbol = firstNonEmpty(record.FromSymbol, fromMetadata.Symbol)
	}
	if toResolved {
		transaction.ToCryptoID = toMetadata.ID
		transaction.ToSymbol = firstNonEmpty(record.ToSymbol, toMetadata.Symbol)
	}
	fromAmount := preferredAmount(record.FromHumanAmount, record.FromAmount)
	toAmount := preferredAmount(record.ToHumanAmount, record.ToAmount)
	transaction.FromAmount = &fromAmount
	transaction.ToAmount = &toAmount
	transaction.FromRawAmount = record.FromAmount
	transaction.ToRawAmount = record.ToAmount
}

// preferredAmount returns the pre-formatted amount when it is a non-zero
// number, else the parsed raw amount, else zero.
func preferredAmount(formatted string, raw string) decimal.Decimal {
	if parsed, ok := walletapi.ParseDecimal(formatted); ok && !parsed.IsZero() {
		return parsed
	}
	if parsed, ok := walletapi.ParseDecimal(raw); ok {
		return parsed
	}
	return decimal.Zero
}

type cachedTransaction struct {
	Transaction
	Amount     json.RawMessage `json:"amount"`
	Value      json.RawMessage `json:"value"`
	FromAmount json.RawMessage `json:"fromAmount,omitempty"`
	ToAmount   json.RawMessage `json:"toAmount,omitempty"`
}

// decodeCachedTransactions reads the cached list. Non-numeric amounts become
// zero and entries that are not transaction objects are skipped.
func decodeCachedTransactions(payload []byte) ([]Transaction, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, err
	}
	transactions := make([]Transaction, 0, len(entries))
	for _, raw := range entries {
		if !gjson.ParseBytes(raw).IsObject() {
			continue
		}
		var entry cachedTransaction
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		transaction := entry.Transaction
		transaction.Amount = coerceValue(entry.Amount)
		transaction.Value = coerceValue(entry.Value)
		transaction.FromAmount = coerceOptional(entry.FromAmount)
		transaction.ToAmount = coerceOptional(entry.ToAmount)
		transaction.Type = ParseTransactionType(string(transaction.Type))
		transactions = append(transactions, transaction)
	}
	return transactions, nil
}

func coerceOptional(raw json.RawMessage) *decimal.Decimal {
	if len(raw) == 0 || gjson.ParseBytes(raw).Type == gjson.Null {
		return nil
	}
	value := coerceValue(raw)
	return &value
}

func coerceValue(raw json.RawMessage) decimal.Decimal {
	if len(raw) == 0 {
		return decimal.Zero
	}
	result := gjson.ParseBytes(raw)
	switch result.Type {
	case gjson.Number:
		parsed, err := decimal.NewFromString(result.Raw)
		if err != nil {
			return decimal.Zero
		}
		return parsed
	case gjson.String:
		parsed, ok := walletapi.ParseDecimal(result.Str)
		if !ok {
			return decimal.Zero
		}
		return parsed
	default:
		return decimal.Zero
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
