package wallet

import (
	"encoding/json"
	"strings"

	"github.com/MarkoPoloResearchLab/hyperx/pkg/walletapi"
	"github.com/shopspring/decimal"
)

// AssetBalance is static metadata merged with a fetched balance.
type AssetBalance struct {
	ID             string          `json:"id"`
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name"`
	Icon           string          `json:"icon"`
	Color          string          `json:"color"`
	ReferencePrice decimal.Decimal `json:"price"`
	Chain          string          `json:"chain"`
	Balance        decimal.Decimal `json:"balance"`
	Address        string          `json:"address,omitempty"`
}

// Value returns balance times reference price.
func (asset AssetBalance) Value() decimal.Decimal {
	return asset.Balance.Mul(asset.ReferencePrice)
}

func newAssetBalance(metadata AssetMetadata, balance decimal.Decimal, address string) AssetBalance {
	return AssetBalance{
		ID:             metadata.ID,
		Symbol:         metadata.Symbol,
		Name:           metadata.Name,
		Icon:           metadata.Icon,
		Color:          metadata.Color,
		ReferencePrice: metadata.ReferencePrice,
		Chain:          metadata.Chain,
		Balance:        balance,
		Address:        address,
	}
}

// DisplayAsset returns the asset with id, or a neutral placeholder for display.
func DisplayAsset(assets []AssetBalance, id string) AssetBalance {
	for _, asset := range assets {
		if asset.ID == id {
			return asset
		}
	}
	return AssetBalance{
		ID:      id,
		Symbol:  strings.ToUpper(id),
		Name:    id,
		Icon:    id,
		Color:   defaultDisplayColor,
		Balance: decimal.Zero,
	}
}

// TransactionType classifies a Transaction.
type TransactionType string

const (
	TransactionSend        TransactionType = "send"
	TransactionReceive     TransactionType = "receive"
	TransactionWithdraw    TransactionType = "withdraw"
	TransactionConvert     TransactionType = "convert"
	TransactionSwap        TransactionType = "swap"
	TransactionInteraction TransactionType = "interaction"
	TransactionApproval    TransactionType = "approval"
	TransactionUnknown     TransactionType = "unknown"
)

// ParseTransactionType maps a server type string; unrecognised values become unknown.
func ParseTransactionType(raw string) TransactionType {
	switch candidate := TransactionType(strings.ToLower(strings.TrimSpace(raw))); candidate {
	case TransactionSend, TransactionReceive, TransactionWithdraw, TransactionConvert,
		TransactionSwap, TransactionInteraction, TransactionApproval:
		return candidate
	default:
		return TransactionUnknown
	}
}

// IsPaired reports whether the type carries from/to legs.
func (transactionType TransactionType) IsPaired() bool {
	return transactionType == TransactionConvert || transactionType == TransactionSwap
}

// Transaction is one history entry, newest first in every list.
type Transaction struct {
	ID            string           `json:"id"`
	Type          TransactionType  `json:"type"`
	CryptoID      string           `json:"cryptoId,omitempty"`
	Symbol        string           `json:"symbol,omitempty"`
	Amount        decimal.Decimal  `json:"amount"`
	RawAmount     string           `json:"rawAmount,omitempty"`
	Address       string           `json:"address,omitempty"`
	Timestamp     string           `json:"timestamp"`
	Value         decimal.Decimal  `json:"value"`
	FromAddress   string           `json:"fromAddress,omitempty"`
	ToAddress     string           `json:"toAddress,omitempty"`
	Direction     string           `json:"direction,omitempty"`
	Status        string           `json:"status,omitempty"`
	TxHash        string           `json:"txHash,omitempty"`
	Metadata      json.RawMessage  `json:"metadata,omitempty"`
	Currency      string           `json:"currency,omitempty"`
	Category      string           `json:"category,omitempty"`
	FromCryptoID  string           `json:"fromCryptoId,omitempty"`
	ToCryptoID    string           `json:"toCryptoId,omitempty"`
	FromSymbol    string           `json:"fromSymbol,omitempty"`
	ToSymbol      string           `json:"toSymbol,omitempty"`
	FromAmount    *decimal.Decimal `json:"fromAmount,omitempty"`
	ToAmount      *decimal.Decimal `json:"toAmount,omitempty"`
	FromRawAmount string           `json:"fromRawAmount,omitempty"`
	ToRawAmount   string           `json:"toRawAmount,omitempty"`
}

// SwapQuote is a priced swap offer together with the local asset ids it was
// requested for.
type SwapQuote struct {
	walletapi.Quote
	FromAssetID string `json:"fromAssetId"`
	ToAssetID   string `json:"toAssetId"`
}

// Operation names a wallet capability.
type Operation string

const (
	OperationSend             Operation = "send"
	OperationReceive          Operation = "receive"
	OperationConvert          Operation = "convert"
	OperationSwap             Operation = "swap"
	OperationInternalTransfer Operation = "internal_transfer"
)

// Operations lists every capability in display order.
func Operations() []Operation {
	return []Operation{OperationSend, OperationReceive, OperationConvert, OperationSwap, OperationInternalTransfer}
}

// ParseOperation validates an operation name.
func ParseOperation(raw string) (Operation, bool) {
	candidate := Operation(strings.ToLower(strings.TrimSpace(raw)))
	for _, operation := range Operations() {
		if operation == candidate {
			return operation, true
		}
	}
	return "", false
}

// Capabilities records which operations are executed by the wallet service.
// Operations absent from the map run locally.
type Capabilities map[Operation]bool

// DefaultCapabilities routes send and swap to the wallet service.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		OperationSend:             true,
		OperationReceive:          false,
		OperationConvert:          false,
		OperationSwap:             true,
		OperationInternalTransfer: false,
	}
}

// HasBackend reports whether operation is executed remotely.
func (capabilities Capabilities) HasBackend(operation Operation) bool {
	return capabilities[operation]
}

func (capabilities Capabilities) validate() error {
	if capabilities.HasBackend(OperationInternalTransfer) {
		return WrapError(string(OperationInternalTransfer), errorSubjectRemote, errorCodeNoBackend, ErrNoBackend)
	}
	if capabilities.HasBackend(OperationConvert) && !capabilities.HasBackend(OperationSwap) {
		return WrapError(string(OperationConvert), errorSubjectRemote, errorCodeNoBackend, ErrNoBackend)
	}
	return nil
}
