package wallet

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/MarkoPoloResearchLab/hyperx/pkg/gateway"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/notify"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/walletapi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestSendChainMapping(t *testing.T) {
	t.Parallel()
	require.Equal(t, "bitcoin-testnet", SendChain("BTC_TESTNET"))
	require.Equal(t, "ethereum", SendChain("ETH"))
	require.Equal(t, "ethereum-sepolia", SendChain("ETH_SEPOLIA"))
	require.Equal(t, "ethereum", SendChain("USDC"))
	require.Equal(t, "ethereum", SendChain("PLUME"))
}

func TestSendExternalSuccessRefreshes(t *testing.T) {
	t.Parallel()
	fixture := newFixture(t)
	fixture.seed(t, walletapi.BalanceEntry{Currency: "eth_sepolia", BalanceFormatted: "1"})
	fixture.api.balances = []walletapi.BalanceEntry{{Currency: "eth_sepolia", BalanceFormatted: "0.75"}}

	ok := fixture.engine.SendExternal(context.Background(), "u1", "eth_sepolia", mustDecimal(t, "0.25"), "0x9876543210fedcba")
	require.True(t, ok)
	require.Equal(t, []walletapi.SendRequest{{
		Currency:  "ETH_SEPOLIA",
		Amount:    "0.25",
		ToAddress: "0x9876543210fedcba",
		Chain:     "ethereum-sepolia",
	}}, fixture.api.sendRequests)
	require.Equal(t, 2, fixture.api.balanceCalls)
	require.Equal(t, 1, fixture.api.historyCalls)
	requireDecimal(t, "0.75", fixture.engine.Balance("eth_sepolia"))

	notification := lastNotification(t, fixture.notifier)
	require.Equal(t, "Transaction Successful", notification.Title)
	require.Equal(t, "Sent 0.25 ETH to 0x987654...", notification.Description)
}

func TestSendExternalFailures(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name            string
		assetID         string
		sendErr         error
		wantTitle       string
		wantDescription string
	}{
		{name: "unknown asset", assetID: "plume", wantTitle: "Crypto Not Found", wantDescription: "Selected cryptocurrency not found"},
		{name: "rejected", assetID: "eth", sendErr: &gateway.RejectedError{Message: "Invalid address"}, wantTitle: "Transaction Failed", wantDescription: "Invalid address"},
		{name: "rejected without message", assetID: "eth", sendErr: &gateway.RejectedError{}, wantTitle: "Transaction Failed", wantDescription: "Failed to send cryptocurrency"},
		{name: "network", assetID: "eth", sendErr: fmt.Errorf("%w: dial", gateway.ErrNetwork), wantTitle: "Transaction Failed", wantDescription: "Network error. Please try again."},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			fixture := newFixture(t)
			fixture.seed(t, walletapi.BalanceEntry{Currency: "eth", BalanceFormatted: "1"})
			fixture.api.sendErr = testCase.sendErr

			require.False(t, fixture.engine.SendExternal(context.Background(), "u1", testCase.assetID, mustDecimal(t, "0.1"), "0x1234567890"))
			notification := lastNotification(t, fixture.notifier)
			require.Equal(t, testCase.wantTitle, notification.Title)
			require.Equal(t, testCase.wantDescription, notification.Description)
			require.Equal(t, notify.VariantDestructive, notification.Variant)
			require.Equal(t, 1, fixture.api.balanceCalls)
			requireDecimal(t, "1", fixture.engine.Balance("eth"))
		})
	}
}

func TestSendRoutesByCapability(t *testing.T) {
	t.Parallel()
	backed := newFixture(t)
	backed.seed(t, walletapi.BalanceEntry{Currency: "eth", BalanceFormatted: "1"})
	require.True(t, backed.engine.Send(context.Background(), "u1", "eth", mustDecimal(t, "0.1"), "0x1234567890"))
	require.Len(t, backed.api.sendRequests, 1)
	require.Empty(t, backed.engine.Transactions())

	local := newFixture(t, WithCapabilities(Capabilities{OperationSwap: true}))
	local.seed(t, walletapi.BalanceEntry{Currency: "eth", BalanceFormatted: "1"})
	require.True(t, local.engine.Send(context.Background(), "u1", "eth", mustDecimal(t, "0.1"), "0x1234567890"))
	require.Empty(t, local.api.sendRequests)
	require.Len(t, local.engine.Transactions(), 1)
	requireDecimal(t, "0.9", local.engine.Balance("eth"))
}

func TestSwapQuoteValidation(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name    string
		fromID  string
		toID    string
		amount  string
		wantErr error
	}{
		{name: "same asset", fromID: "eth", toID: "eth", amount: "1", wantErr: ErrSameAsset},
		{name: "zero amount", fromID: "eth", toID: "usdc", amount: "0", wantErr: ErrInvalidAmount},
		{name: "unknown asset", fromID: "eth", toID: "plume", amount: "1", wantErr: ErrNotFound},
		{name: "insufficient", fromID: "eth", toID: "usdc", amount: "2", wantErr: ErrInsufficientBalance},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			fixture := newFixture(t)
			fixture.seed(t,
				walletapi.BalanceEntry{Currency: "eth", BalanceFormatted: "1"},
				walletapi.BalanceEntry{Currency: "usdc", BalanceFormatted: "0"},
			)
			_, err := fixture.engine.SwapQuote(context.Background(), testCase.fromID, testCase.toID, mustDecimal(t, testCase.amount))
			require.ErrorIs(t, err, testCase.wantErr)
			require.Empty(t, fixture.api.quoteRequests)
		})
	}
}

func TestSwapQuoteAndExecute(t *testing.T) {
	t.Parallel()
	fixture := newFixture(t)
	fixture.seed(t,
		walletapi.BalanceEntry{Currency: "eth_sepolia", BalanceFormatted: "1"},
		walletapi.BalanceEntry{Currency: "usdc", BalanceFormatted: "0"},
	)
	fixture.api.quote = walletapi.Quote{QuoteID: "q-1", FromCurrency: "ETH", ToCurrency: "USDC", ToAmount: decimal.NewFromInt(3465), FeeAmount: decimal.NewFromInt(35)}
	ctx := context.Background()

	quote, err := fixture.engine.SwapQuote(ctx, "eth_sepolia", "usdc", mustDecimal(t, "1"))
	require.NoError(t, err)
	require.Equal(t, [][3]string{{"ETH", "USDC", "1"}}, fixture.api.quoteRequests)
	require.Equal(t, "eth_sepolia", quote.FromAssetID)
	requireDecimal(t, "1", quote.FromAmount)

	require.True(t, fixture.engine.ExecuteSwap(ctx, "u1", quote))
	require.Equal(t, []walletapi.ExecuteSwapRequest{{
		UserID:       "u1",
		FromCurrency: "ETH_SEPOLIA",
		ToCurrency:   "USDC",
		FromAmount:   "1",
		QuoteID:      "q-1",
	}}, fixture.api.executeRequests)
	require.Equal(t, 1, fixture.api.historyCalls)
	require.Equal(t, "Swap Successful", lastNotification(t, fixture.notifier).Title)
}

func TestExecuteSwapFailures(t *testing.T) {
	t.Parallel()
	fixture := newFixture(t)
	ctx := context.Background()
	quote := SwapQuote{Quote: walletapi.Quote{QuoteID: "q-1", FromAmount: decimal.NewFromInt(1)}, FromAssetID: "eth", ToAssetID: "usdc"}

	require.False(t, fixture.engine.ExecuteSwap(ctx, "", quote))
	require.Equal(t, "Swap Error", lastNotification(t, fixture.notifier).Title)

	require.False(t, fixture.engine.ExecuteSwap(ctx, "u1", SwapQuote{FromAssetID: "eth"}))
	require.Equal(t, "Quote Failed", lastNotification(t, fixture.notifier).Title)
	require.Empty(t, fixture.api.executeRequests)

	fixture.api.executeErr = &gateway.RejectedError{Message: "quote expired"}
	require.False(t, fixture.engine.ExecuteSwap(ctx, "u1", quote))
	notification := lastNotification(t, fixture.notifier)
	require.Equal(t, "Swap Failed", notification.Title)
	require.Equal(t, "quote expired", notification.Description)
	require.Zero(t, fixture.api.balanceCalls)
}

func TestConvertRoutesByCapability(t *testing.T) {
	t.Parallel()
	backed := newFixture(t, WithCapabilities(Capabilities{OperationConvert: true, OperationSwap: true}))
	backed.seed(t,
		walletapi.BalanceEntry{Currency: "eth", BalanceFormatted: "1"},
		walletapi.BalanceEntry{Currency: "usdc", BalanceFormatted: "0"},
	)
	backed.api.quote = walletapi.Quote{QuoteID: "q-2"}
	require.True(t, backed.engine.Convert(context.Background(), "u1", "eth", "usdc", mustDecimal(t, "0.5")))
	require.Len(t, backed.api.executeRequests, 1)
	require.Equal(t, "0.5", backed.api.executeRequests[0].FromAmount)

	backed.api.quoteErr = errors.New("down")
	require.False(t, backed.engine.Convert(context.Background(), "u1", "eth", "usdc", mustDecimal(t, "0.5")))
	require.Equal(t, "Quote Failed", lastNotification(t, backed.notifier).Title)

	local := newFixture(t)
	local.seed(t,
		walletapi.BalanceEntry{Currency: "eth", BalanceFormatted: "1"},
		walletapi.BalanceEntry{Currency: "usdc", BalanceFormatted: "0"},
	)
	require.True(t, local.engine.Convert(context.Background(), "u1", "eth", "usdc", mustDecimal(t, "0.5")))
	require.Empty(t, local.api.quoteRequests)
	requireDecimal(t, "1732.5", local.engine.Balance("usdc"))
}

func TestDepositAddress(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	local := newFixture(t)
	local.seed(t, walletapi.BalanceEntry{Currency: "btc_testnet", BalanceFormatted: "0", Address: "tb1cached"})
	address, err := local.engine.DepositAddress(ctx, "btc_testnet", "u1")
	require.NoError(t, err)
	require.Equal(t, "tb1cached", address)
	require.Empty(t, local.api.depositRequests)
	_, err = local.engine.DepositAddress(ctx, "usdc", "u1")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = local.engine.DepositAddress(ctx, "doge", "u1")
	require.ErrorIs(t, err, ErrNotFound)

	backed := newFixture(t, WithCapabilities(Capabilities{OperationReceive: true, OperationSend: true, OperationSwap: true}))
	backed.seed(t, walletapi.BalanceEntry{Currency: "btc_testnet", BalanceFormatted: "0", Address: "tb1cached"})
	backed.api.deposit = "tb1fresh"
	address, err = backed.engine.DepositAddress(ctx, "btc_testnet", "u1")
	require.NoError(t, err)
	require.Equal(t, "tb1fresh", address)
	require.Equal(t, [][3]string{{"BTC_TESTNET", "bitcoin-testnet", "u1"}}, backed.api.depositRequests)

	backed.api.depositErr = errors.New("down")
	address, err = backed.engine.DepositAddress(ctx, "btc_testnet", "u1")
	require.NoError(t, err)
	require.Equal(t, "tb1cached", address)

	_, err = backed.engine.DepositAddress(ctx, "eth", "u1")
	require.Error(t, err)
}
