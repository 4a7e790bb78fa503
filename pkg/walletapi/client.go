// Package walletapi maps the wallet-service endpoints onto typed calls.
package walletapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/MarkoPoloResearchLab/hyperx/pkg/gateway"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	pathBalancesPrefix = "/v1/wallet/balances/"
	pathHistory        = "/v1/wallet/history"
	pathSendExternal   = "/v1/send/external"
	pathSwapQuote      = "/v1/wallet/swap/quote"
	pathSwapExecute    = "/v1/wallet/swap/execute"
	pathDepositAddress = "/v1/receive/address"
)

// Endpoint names used in ShapeError and RejectedError.
const (
	EndpointBalances       = "wallet.balances"
	EndpointHistory        = "wallet.history"
	EndpointSendExternal   = "wallet.send_external"
	EndpointSwapQuote      = "wallet.swap_quote"
	EndpointSwapExecute    = "wallet.swap_execute"
	EndpointDepositAddress = "wallet.deposit_address"
)

// Doer issues gateway requests.
type Doer interface {
	Do(ctx context.Context, request gateway.Request) (json.RawMessage, error)
}

// BalanceEntry is one element of the balances payload.
type BalanceEntry struct {
	Currency         string
	BalanceFormatted string
	Address          string
}

// SendRequest is the body of an external send.
type SendRequest struct {
	Currency  string `json:"currency"`
	Amount    string `json:"amount"`
	ToAddress string `json:"toAddress"`
	Chain     string `json:"chain"`
}

// Quote is a priced swap offer.
type Quote struct {
	QuoteID      string          `json:"quoteId"`
	FromCurrency string          `json:"fromCurrency"`
	ToCurrency   string          `json:"toCurrency"`
	FromAmount   decimal.Decimal `json:"fromAmount"`
	ToAmount     decimal.Decimal `json:"toAmount"`
	FeeAmount    decimal.Decimal `json:"feeAmount"`
	Rate         decimal.Decimal `json:"rate"`
}

// ExecuteSwapRequest is the body of a swap execution.
type ExecuteSwapRequest struct {
	UserID       string `json:"userId"`
	FromCurrency string `json:"fromCurrency"`
	ToCurrency   string `json:"toCurrency"`
	FromAmount   string `json:"fromAmount"`
	QuoteID      string `json:"quoteId"`
}

// Client calls the wallet service.
type Client struct {
	doer Doer
}

// New returns a Client backed by doer.
func New(doer Doer) (*Client, error) {
	if doer == nil {
		return nil, fmt.Errorf("%w: wallet api doer is nil", gateway.ErrInvalidConfig)
	}
	return &Client{doer: doer}, nil
}

// Balances fetches the per-currency balances of userID.
func (client *Client) Balances(ctx context.Context, userID string) ([]BalanceEntry, error) {
	body, err := client.get(ctx, pathBalancesPrefix+url.PathEscape(userID), nil)
	if err != nil {
		return nil, err
	}
	items, err := successArray(EndpointBalances, body)
	if err != nil {
		return nil, err
	}
	entries := make([]BalanceEntry, 0, len(items))
	for _, item := range items {
		currency := strings.TrimSpace(item.Get("currency").String())
		if currency == "" {
			continue
		}
		entries = append(entries, BalanceEntry{
			Currency:         currency,
			BalanceFormatted: item.Get("balanceFormatted").String(),
			Address:          item.Get("address").String(),
		})
	}
	return entries, nil
}

// History fetches the raw transaction history of userID.
func (client *Client) History(ctx context.Context, userID string) ([]HistoryRecord, error) {
	body, err := client.get(ctx, pathHistory, url.Values{"userId": {userID}})
	if err != nil {
		return nil, err
	}
	items, err := successArray(EndpointHistory, body)
	if err != nil {
		return nil, err
	}
	records := make([]HistoryRecord, 0, len(items))
	for _, item := range items {
		if !item.IsObject() {
			continue
		}
		records = append(records, parseHistoryRecord(item))
	}
	return records, nil
}

// SendExternal submits an on-chain send.
func (client *Client) SendExternal(ctx context.Context, request SendRequest) error {
	body, err := client.post(ctx, pathSendExternal, request)
	if err != nil {
		return err
	}
	return requireSuccess(EndpointSendExternal, body)
}

// SwapQuote prices a swap of amount from one currency to another.
func (client *Client) SwapQuote(ctx context.Context, fromCurrency string, toCurrency string, amount string) (Quote, error) {
	body, err := client.post(ctx, pathSwapQuote, map[string]string{
		"fromCurrency": fromCurrency,
		"toCurrency":   toCurrency,
		"fromAmount":   amount,
	})
	if err != nil {
		return Quote{}, err
	}
	if err := requireSuccess(EndpointSwapQuote, body); err != nil {
		return Quote{}, err
	}
	var quote gjson.Result
	for _, path := range []string{"quote", "data"} {
		candidate := gjson.GetBytes(body, path)
		if candidate.IsObject() && candidate.Get("quoteId").Exists() {
			quote = candidate
			break
		}
	}
	if !quote.Exists() {
		return Quote{}, &gateway.ShapeError{Endpoint: EndpointSwapQuote, Body: body}
	}
	parsed := Quote{
		QuoteID:      quote.Get("quoteId").String(),
		FromCurrency: firstNonEmpty(quote.Get("fromCurrency").String(), fromCurrency),
		ToCurrency:   firstNonEmpty(quote.Get("toCurrency").String(), toCurrency),
		FromAmount:   Decimal(quote.Get("fromAmount")),
		ToAmount:     Decimal(quote.Get("toAmount")),
		FeeAmount:    Decimal(quote.Get("feeAmount")),
		Rate:         Decimal(quote.Get("rate")),
	}
	if parsed.FromAmount.IsZero() {
		parsed.FromAmount, _ = decimal.NewFromString(amount)
	}
	return parsed, nil
}

// ExecuteSwap executes a previously quoted swap.
func (client *Client) ExecuteSwap(ctx context.Context, request ExecuteSwapRequest) error {
	body, err := client.post(ctx, pathSwapExecute, request)
	if err != nil {
		return err
	}
	return requireSuccess(EndpointSwapExecute, body)
}

// DepositAddress looks up the receive address for currency on chain.
func (client *Client) DepositAddress(ctx context.Context, currency string, chain string, userID string) (string, error) {
	body, err := client.get(ctx, pathDepositAddress, url.Values{
		"currency": {currency},
		"chain":    {chain},
		"userId":   {userID},
	})
	if err != nil {
		return "", err
	}
	if err := rejection(EndpointDepositAddress, body); err != nil {
		return "", err
	}
	for _, path := range []string{"address", "data.address", "data.depositAddress"} {
		if address := strings.TrimSpace(gjson.GetBytes(body, path).String()); address != "" {
			return address, nil
		}
	}
	return "", &gateway.ShapeError{Endpoint: EndpointDepositAddress, Body: body}
}

func (client *Client) get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return client.doer.Do(ctx, gateway.Request{Service: gateway.ServiceWallet, Method: http.MethodGet, Path: path, Query: query})
}

func (client *Client) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return client.doer.Do(ctx, gateway.Request{Service: gateway.ServiceWallet, Method: http.MethodPost, Path: path, Body: body})
}

func successArray(endpoint string, body []byte) ([]gjson.Result, error) {
	parsed := gjson.ParseBytes(body)
	data := parsed.Get("data")
	if !parsed.Get("success").Bool() || !data.IsArray() {
		return nil, &gateway.ShapeError{Endpoint: endpoint, Body: body}
	}
	return data.Array(), nil
}

// requireSuccess accepts only envelopes with success=true.
func requireSuccess(endpoint string, body []byte) error {
	if gjson.GetBytes(body, "success").Bool() {
		return nil
	}
	return &gateway.RejectedError{Endpoint: endpoint, Message: rejectionMessage(body)}
}

func rejection(endpoint string, body []byte) error {
	success := gjson.GetBytes(body, "success")
	if success.Exists() && !success.Bool() {
		return &gateway.RejectedError{Endpoint: endpoint, Message: rejectionMessage(body)}
	}
	return nil
}

func rejectionMessage(body []byte) string {
	for _, path := range []string{"error", "message"} {
		result := gjson.GetBytes(body, path)
		if result.Type == gjson.String && result.Str != "" {
			return result.Str
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
