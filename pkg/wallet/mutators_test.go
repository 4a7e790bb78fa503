package wallet

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/MarkoPoloResearchLab/hyperx/pkg/notify"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/walletapi"
	"github.com/stretchr/testify/require"
)

func TestLocalSendValidation(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name      string
		assetID   string
		amount    string
		address   string
		wantTitle string
		wantErr   error
	}{
		{name: "short address", assetID: "eth", amount: "1", address: "0xabc", wantTitle: "Invalid Address", wantErr: ErrInvalidAddress},
		{name: "zero amount", assetID: "eth", amount: "0", address: "0x1234567890", wantTitle: "Invalid Amount", wantErr: ErrInvalidAmount},
		{name: "negative amount", assetID: "eth", amount: "-1", address: "0x1234567890", wantTitle: "Invalid Amount", wantErr: ErrInvalidAmount},
		{name: "unknown asset", assetID: "doge", amount: "1", address: "0x1234567890", wantTitle: "Crypto Not Found", wantErr: ErrNotFound},
		{name: "insufficient balance", assetID: "eth", amount: "3", address: "0x1234567890", wantTitle: "Insufficient Balance", wantErr: ErrInsufficientBalance},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			fixture := newFixture(t)
			fixture.seed(t, walletapi.BalanceEntry{Currency: "eth", BalanceFormatted: "2"})
			before := fixture.engine.TotalBalance()

			ok := fixture.engine.LocalSend(context.Background(), testCase.assetID, mustDecimal(t, testCase.amount), testCase.address)
			require.False(t, ok)
			notification := lastNotification(t, fixture.notifier)
			require.Equal(t, testCase.wantTitle, notification.Title)
			require.Equal(t, notify.VariantDestructive, notification.Variant)
			require.True(t, before.Equal(fixture.engine.TotalBalance()))
			require.Empty(t, fixture.engine.Transactions())

			entry := fixture.logger.entries[len(fixture.logger.entries)-1]
			require.Equal(t, operationLocalSend, entry.Operation)
			require.True(t, errors.Is(entry.Error, testCase.wantErr))
			var operationError OperationError
			require.ErrorAs(t, entry.Error, &operationError)
			require.Equal(t, operationLocalSend, operationError.Operation())
		})
	}
}

func TestLocalSendUpdatesStateAndCache(t *testing.T) {
	t.Parallel()
	fixture := newFixture(t)
	fixture.seed(t, walletapi.BalanceEntry{Currency: "eth", BalanceFormatted: "2"})
	ctx := context.Background()

	require.True(t, fixture.engine.LocalSend(ctx, "eth", mustDecimal(t, "0.5"), "0x1234567890abcdef"))
	require.True(t, fixture.engine.LocalReceive(ctx, "eth", mustDecimal(t, "1"), "0xfeedfacecafe"))

	requireDecimal(t, "2.5", fixture.engine.Balance("eth"))
	transactions := fixture.engine.Transactions()
	require.Len(t, transactions, 2)
	require.Equal(t, TransactionReceive, transactions[0].Type)
	require.Equal(t, TransactionSend, transactions[1].Type)
	require.Equal(t, strconv.FormatInt(fixedNow.UnixNano(), 10), transactions[1].ID)
	requireDecimal(t, "1750", transactions[1].Value)
	require.Equal(t, "0x1234567890abcdef", transactions[1].Address)

	notification := lastNotification(t, fixture.notifier)
	require.Equal(t, "Funds Received", notification.Title)

	cachedAssets, err := fixture.cache.Get(ctx, CacheKeyAssets)
	require.NoError(t, err)
	require.Contains(t, string(cachedAssets), `"balance":"2.5"`)
	cachedTransactions, err := fixture.cache.Get(ctx, CacheKeyTransactions)
	require.NoError(t, err)
	decoded, err := decodeCachedTransactions(cachedTransactions)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
}

func TestLocalReceiveDefaultsAddress(t *testing.T) {
	t.Parallel()
	fixture := newFixture(t)
	fixture.seed(t, walletapi.BalanceEntry{Currency: "usdc", BalanceFormatted: "0"})
	require.True(t, fixture.engine.LocalReceive(context.Background(), "usdc", mustDecimal(t, "5"), " "))
	transaction := fixture.engine.Transactions()[0]
	require.Equal(t, "External Wallet", transaction.Address)
	requireDecimal(t, "5", transaction.Value)

	require.False(t, fixture.engine.LocalReceive(context.Background(), "usdc", mustDecimal(t, "0"), ""))
	require.False(t, fixture.engine.LocalReceive(context.Background(), "nope", mustDecimal(t, "1"), ""))
}

func TestConversionAmountsFeeInvariant(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		amount, fromPrice, toPrice string
	}{
		{amount: "1", fromPrice: "3500", toPrice: "1"},
		{amount: "0.01", fromPrice: "65000", toPrice: "3500"},
		{amount: "123.456", fromPrice: "0.1", toPrice: "1"},
	}
	for _, testCase := range testCases {
		amount := mustDecimal(t, testCase.amount)
		fromPrice := mustDecimal(t, testCase.fromPrice)
		toPrice := mustDecimal(t, testCase.toPrice)
		fromValue, toAmount := ConversionAmounts(amount, fromPrice, toPrice)
		require.True(t, fromValue.Equal(amount.Mul(fromPrice)))
		expected := fromValue.Mul(mustDecimal(t, "0.99"))
		require.True(t, toAmount.Mul(toPrice).Sub(expected).Abs().LessThan(mustDecimal(t, "0.000000001")),
			"toAmount*toPrice=%s expected=%s", toAmount.Mul(toPrice), expected)
	}
}

func TestLocalConvert(t *testing.T) {
	t.Parallel()
	fixture := newFixture(t)
	fixture.seed(t,
		walletapi.BalanceEntry{Currency: "eth", BalanceFormatted: "2"},
		walletapi.BalanceEntry{Currency: "usdc", BalanceFormatted: "0"},
	)
	before := fixture.engine.TotalBalance()

	require.True(t, fixture.engine.LocalConvert(context.Background(), "eth", "usdc", mustDecimal(t, "1")))
	requireDecimal(t, "1", fixture.engine.Balance("eth"))
	requireDecimal(t, "3465", fixture.engine.Balance("usdc"))
	requireDecimal(t, "35", before.Sub(fixture.engine.TotalBalance()))

	transaction := fixture.engine.Transactions()[0]
	require.Equal(t, TransactionConvert, transaction.Type)
	require.Equal(t, "eth", transaction.FromCryptoID)
	require.Equal(t, "usdc", transaction.ToCryptoID)
	requireDecimal(t, "3500", transaction.Value)
	requireDecimal(t, "3465", *transaction.ToAmount)
	require.Equal(t, "Converted 1 ETH to 3465.000000 USDC", lastNotification(t, fixture.notifier).Description)
}

func TestLocalConvertValidation(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name      string
		fromID    string
		toID      string
		amount    string
		wantTitle string
	}{
		{name: "zero amount", fromID: "eth", toID: "usdc", amount: "0", wantTitle: "Invalid Amount"},
		{name: "missing target", fromID: "eth", toID: "plume", amount: "1", wantTitle: "Crypto Not Found"},
		{name: "same asset", fromID: "eth", toID: "eth", amount: "1", wantTitle: "Invalid Swap"},
		{name: "insufficient", fromID: "eth", toID: "usdc", amount: "5", wantTitle: "Insufficient Balance"},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			fixture := newFixture(t)
			fixture.seed(t,
				walletapi.BalanceEntry{Currency: "eth", BalanceFormatted: "2"},
				walletapi.BalanceEntry{Currency: "usdc", BalanceFormatted: "0"},
			)
			require.False(t, fixture.engine.LocalConvert(context.Background(), testCase.fromID, testCase.toID, mustDecimal(t, testCase.amount)))
			require.Equal(t, testCase.wantTitle, lastNotification(t, fixture.notifier).Title)
			requireDecimal(t, "2", fixture.engine.Balance("eth"))
		})
	}
}

func TestInternalTransfer(t *testing.T) {
	t.Parallel()
	fixture := newFixture(t)
	fixture.seed(t, walletapi.BalanceEntry{Currency: "usdc", BalanceFormatted: "10"})
	ctx := context.Background()

	require.False(t, fixture.engine.InternalTransfer(ctx, "usdc", mustDecimal(t, "1"), "  "))
	require.Equal(t, "Missing Recipient", lastNotification(t, fixture.notifier).Title)

	require.True(t, fixture.engine.InternalTransfer(ctx, "usdc", mustDecimal(t, "4"), "bob"))
	requireDecimal(t, "6", fixture.engine.Balance("usdc"))
	transaction := fixture.engine.Transactions()[0]
	require.Equal(t, "Internal: bob", transaction.Address)
	require.Equal(t, TransactionSend, transaction.Type)
	notification := lastNotification(t, fixture.notifier)
	require.Equal(t, "Internal Transfer Successful", notification.Title)
	require.Equal(t, "Sent 4 USDC to bob", notification.Description)
}
