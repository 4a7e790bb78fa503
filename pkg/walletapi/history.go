package walletapi

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// HistoryRecord is one untransformed element of the history payload. String
// fields hold the server text verbatim; numeric fields are left unparsed so the
// engine decides how to coerce them.
type HistoryRecord struct {
	ID              string
	Type            string
	Currency        string
	CryptoID        string
	Symbol          string
	Amount          string
	HumanAmount     string
	Value           decimal.NullDecimal
	Address         string
	FromAddress     string
	ToAddress       string
	Direction       string
	Status          string
	TxHash          string
	Metadata        json.RawMessage
	Timestamp       string
	CreatedAt       string
	Category        string
	FromCryptoID    string
	ToCryptoID      string
	FromCurrency    string
	ToCurrency      string
	FromSymbol      string
	ToSymbol        string
	FromAmount      string
	ToAmount        string
	FromHumanAmount string
	ToHumanAmount   string
	Raw             json.RawMessage
}

func parseHistoryRecord(item gjson.Result) HistoryRecord {
	text := func(path string) string {
		return scalarText(item.Get(path))
	}
	record := HistoryRecord{
		ID:              text("id"),
		Type:            text("type"),
		Currency:        text("currency"),
		CryptoID:        text("cryptoId"),
		Symbol:          text("symbol"),
		Amount:          text("amount"),
		HumanAmount:     text("humanAmount"),
		Address:         text("address"),
		FromAddress:     text("fromAddress"),
		ToAddress:       text("toAddress"),
		Direction:       text("direction"),
		Status:          text("status"),
		TxHash:          text("txHash"),
		Timestamp:       text("timestamp"),
		CreatedAt:       text("createdAt"),
		Category:        text("category"),
		FromCryptoID:    text("fromCryptoId"),
		ToCryptoID:      text("toCryptoId"),
		FromCurrency:    text("fromCurrency"),
		ToCurrency:      text("toCurrency"),
		FromSymbol:      text("fromSymbol"),
		ToSymbol:        text("toSymbol"),
		FromAmount:      text("fromAmount"),
		ToAmount:        text("toAmount"),
		FromHumanAmount: text("fromHumanAmount"),
		ToHumanAmount:   text("toHumanAmount"),
		Raw:             json.RawMessage(item.Raw),
	}
	if value := item.Get("value"); value.Type == gjson.Number {
		if parsed, err := decimal.NewFromString(value.Raw); err == nil {
			record.Value = decimal.NullDecimal{Decimal: parsed, Valid: true}
		}
	}
	if metadata := item.Get("metadata"); metadata.Exists() && metadata.Type != gjson.Null {
		record.Metadata = json.RawMessage(metadata.Raw)
	}
	return record
}

func scalarText(result gjson.Result) string {
	switch result.Type {
	case gjson.String:
		return strings.TrimSpace(result.Str)
	case gjson.Number:
		return result.Raw
	default:
		return ""
	}
}

// Decimal parses a JSON number or numeric string; anything else yields zero.
func Decimal(result gjson.Result) decimal.Decimal {
	parsed, ok := ParseDecimal(scalarText(result))
	if !ok {
		return decimal.Zero
	}
	return parsed
}

// ParseDecimal parses text as a decimal, rejecting empty input.
func ParseDecimal(text string) (decimal.Decimal, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return decimal.Zero, false
	}
	parsed, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, false
	}
	return parsed, true
}
