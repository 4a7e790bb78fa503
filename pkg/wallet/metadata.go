package wallet

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AssetMetadata is the static description of a supported asset.
type AssetMetadata struct {
	ID             string
	Symbol         string
	Name           string
	Icon           string
	Color          string
	ReferencePrice decimal.Decimal
	Chain          string
}

var metadataTable = []AssetMetadata{
	{ID: "btc_testnet", Symbol: "BTC", Name: "Bitcoin Testnet", Icon: "btc_testnet", Color: "#F7931A", ReferencePrice: decimal.NewFromInt(65000), Chain: "bitcoin-testnet"},
	{ID: "eth", Symbol: "ETH", Name: "Ethereum", Icon: "eth", Color: "#627EEA", ReferencePrice: decimal.NewFromInt(3500), Chain: "ethereum"},
	{ID: "eth_sepolia", Symbol: "ETH", Name: "Ethereum Sepolia", Icon: "eth_sepolia", Color: "#8A2BE2", ReferencePrice: decimal.NewFromInt(3500), Chain: "ethereum-sepolia"},
	{ID: "usdc", Symbol: "USDC", Name: "USD Coin", Icon: "usdc", Color: "#2775CA", ReferencePrice: decimal.NewFromInt(1), Chain: "ethereum"},
	{ID: "plume", Symbol: "PLUME", Name: "Plume Network", Icon: "plume", Color: "#FF6B35", ReferencePrice: decimal.New(1, -1), Chain: "plume"},
}

var sendChains = map[string]string{
	"BTC_TESTNET": "bitcoin-testnet",
	"ETH":         "ethereum",
	"ETH_SEPOLIA": "ethereum-sepolia",
}

// Metadata returns the ordered static asset table.
func Metadata() []AssetMetadata {
	return append([]AssetMetadata(nil), metadataTable...)
}

// LookupMetadata finds metadata by exact asset id.
func LookupMetadata(id string) (AssetMetadata, bool) {
	for _, metadata := range metadataTable {
		if metadata.ID == id {
			return metadata, true
		}
	}
	return AssetMetadata{}, false
}

// ResolveMetadata matches a server currency code: exact id first, then a
// case-insensitive symbol or id match in table order.
func ResolveMetadata(currency string) (AssetMetadata, bool) {
	key := strings.ToLower(strings.TrimSpace(currency))
	if key == "" {
		return AssetMetadata{}, false
	}
	if metadata, ok := LookupMetadata(key); ok {
		return metadata, true
	}
	for _, metadata := range metadataTable {
		if strings.ToLower(metadata.Symbol) == key || strings.ToLower(metadata.ID) == key {
			return metadata, true
		}
	}
	return AssetMetadata{}, false
}

// SendChain maps an upper-cased asset id to the chain the send endpoint expects.
func SendChain(currency string) string {
	if chain, ok := sendChains[currency]; ok {
		return chain
	}
	return defaultChain
}

func zeroBalances() []AssetBalance {
	assets := make([]AssetBalance, 0, len(metadataTable))
	for _, metadata := range metadataTable {
		assets = append(assets, newAssetBalance(metadata, decimal.Zero, ""))
	}
	return assets
}
