package demobackend

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MarkoPoloResearchLab/hyperx/pkg/wallet"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// serviceError is a rejection reported to clients with its HTTP status.
type serviceError struct {
	status  int
	message string
}

func (rejection *serviceError) Error() string {
	return rejection.message
}

var (
	errEmailTaken      = &serviceError{status: http.StatusConflict, message: "Email already registered"}
	errBadCredentials  = &serviceError{status: http.StatusUnauthorized, message: "Invalid email or password"}
	errNotVerified     = &serviceError{status: http.StatusForbidden, message: "Please verify your email before logging in"}
	errBadCode         = &serviceError{status: http.StatusBadRequest, message: "Invalid verification code"}
	errUnknownAccount  = &serviceError{status: http.StatusNotFound, message: "Account not found"}
	errPinExists       = &serviceError{status: http.StatusConflict, message: "PIN already set"}
	errPinMissing      = &serviceError{status: http.StatusBadRequest, message: "No PIN set for this account"}
	errBadPin          = &serviceError{status: http.StatusBadRequest, message: "Incorrect PIN"}
	errBadRefresh      = &serviceError{status: http.StatusUnauthorized, message: "Invalid refresh token"}
	errBadResetToken   = &serviceError{status: http.StatusBadRequest, message: "Invalid or expired reset token"}
	errUnknownCurrency = &serviceError{status: http.StatusBadRequest, message: "Unsupported currency"}
	errBadAmount       = &serviceError{status: http.StatusBadRequest, message: "Amount must be greater than zero"}
	errInsufficient    = &serviceError{status: http.StatusBadRequest, message: "Insufficient balance"}
	errQuoteNotFound   = &serviceError{status: http.StatusNotFound, message: "Quote not found or expired"}
	errQuoteMismatch   = &serviceError{status: http.StatusBadRequest, message: "Swap does not match the quote"}
	errSameCurrency    = &serviceError{status: http.StatusBadRequest, message: "Cannot swap a currency for itself"}
	errAddressTooShort = &serviceError{status: http.StatusBadRequest, message: "Invalid destination address"}
)

var (
	swapFeeRate      = decimal.New(1, -2)
	addressNamespace = uuid.MustParse("4b4f1f7e-3c0a-4f53-9a58-5d8f0b7d2c11")
)

const historyAmountDecimals int32 = 8

type account struct {
	id           string
	email        string
	passwordHash []byte
	verified     bool
	pinHash      []byte
	balances     map[string]decimal.Decimal
	history      []historyRecord
}

type historyRecord struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	Currency        string `json:"currency"`
	Amount          string `json:"amount"`
	HumanAmount     string `json:"humanAmount"`
	Address         string `json:"address,omitempty"`
	ToAddress       string `json:"toAddress,omitempty"`
	Direction       string `json:"direction"`
	Status          string `json:"status"`
	TxHash          string `json:"txHash,omitempty"`
	Timestamp       string `json:"timestamp"`
	FromCurrency    string `json:"fromCurrency,omitempty"`
	ToCurrency      string `json:"toCurrency,omitempty"`
	FromAmount      string `json:"fromAmount,omitempty"`
	ToAmount        string `json:"toAmount,omitempty"`
	FromHumanAmount string `json:"fromHumanAmount,omitempty"`
	ToHumanAmount   string `json:"toHumanAmount,omitempty"`
}

type balanceView struct {
	Currency         string `json:"currency"`
	BalanceFormatted string `json:"balanceFormatted"`
	Address          string `json:"address"`
}

type swapQuote struct {
	QuoteID      string          `json:"quoteId"`
	FromCurrency string          `json:"fromCurrency"`
	ToCurrency   string          `json:"toCurrency"`
	FromAmount   decimal.Decimal `json:"fromAmount"`
	ToAmount     decimal.Decimal `json:"toAmount"`
	FeeAmount    decimal.Decimal `json:"feeAmount"`
	Rate         decimal.Decimal `json:"rate"`
	expiresAt    time.Time
}

type resetGrant struct {
	email     string
	expiresAt time.Time
}

type refreshGrant struct {
	accountID string
	expiresAt time.Time
}

// ledger is the in-memory state behind both demo services.
type ledger struct {
	mutex            sync.Mutex
	accountsByEmail  map[string]*account
	accountsByID     map[string]*account
	refreshTokens    map[string]refreshGrant
	resetTokens      map[string]resetGrant
	quotes           map[string]swapQuote
	verificationCode string
	refreshTTL       time.Duration
	nowFn            func() time.Time
}

func newLedger(verificationCode string, refreshTTL time.Duration, now func() time.Time) *ledger {
	return &ledger{
		accountsByEmail:  make(map[string]*account),
		accountsByID:     make(map[string]*account),
		refreshTokens:    make(map[string]refreshGrant),
		resetTokens:      make(map[string]resetGrant),
		quotes:           make(map[string]swapQuote),
		verificationCode: verificationCode,
		refreshTTL:       refreshTTL,
		nowFn:            now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (state *ledger) register(email string, password string) error {
	key := normalizeEmail(email)
	if key == "" || password == "" {
		return errBadCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	state.mutex.Lock()
	defer state.mutex.Unlock()
	if _, exists := state.accountsByEmail[key]; exists {
		return errEmailTaken
	}
	created := &account{
		id:           uuid.NewString(),
		email:        key,
		passwordHash: hash,
		balances:     make(map[string]decimal.Decimal),
	}
	state.accountsByEmail[key] = created
	state.accountsByID[created.id] = created
	return nil
}

func (state *ledger) verify(email string, code string) (account, error) {
	state.mutex.Lock()
	defer state.mutex.Unlock()
	found, ok := state.accountsByEmail[normalizeEmail(email)]
	if !ok {
		return account{}, errUnknownAccount
	}
	if strings.TrimSpace(code) != state.verificationCode {
		return account{}, errBadCode
	}
	if !found.verified {
		found.verified = true
		for assetID, amount := range StarterBalances() {
			found.balances[assetID] = amount
		}
	}
	return *found, nil
}

func (state *ledger) exists(email string) bool {
	state.mutex.Lock()
	defer state.mutex.Unlock()
	_, ok := state.accountsByEmail[normalizeEmail(email)]
	return ok
}

func (state *ledger) login(email string, password string) (account, error) {
	state.mutex.Lock()
	found, ok := state.accountsByEmail[normalizeEmail(email)]
	state.mutex.Unlock()
	if !ok {
		return account{}, errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(found.passwordHash, []byte(password)); err != nil {
		return account{}, errBadCredentials
	}
	if !found.verified {
		return account{}, errNotVerified
	}
	return *found, nil
}

func (state *ledger) byID(accountID string) (account, error) {
	state.mutex.Lock()
	defer state.mutex.Unlock()
	found, ok := state.accountsByID[accountID]
	if !ok {
		return account{}, errUnknownAccount
	}
	return *found, nil
}

func (state *ledger) issueRefresh(accountID string) string {
	token := opaqueToken()
	state.mutex.Lock()
	state.refreshTokens[token] = refreshGrant{accountID: accountID, expiresAt: state.nowFn().Add(state.refreshTTL)}
	state.mutex.Unlock()
	return token
}

// rotateRefresh consumes token and returns its account with a replacement token.
func (state *ledger) rotateRefresh(token string) (account, string, error) {
	state.mutex.Lock()
	grant, ok := state.refreshTokens[token]
	delete(state.refreshTokens, token)
	var found *account
	if ok {
		found = state.accountsByID[grant.accountID]
	}
	state.mutex.Unlock()
	if !ok || found == nil || state.nowFn().After(grant.expiresAt) {
		return account{}, "", errBadRefresh
	}
	return *found, state.issueRefresh(found.id), nil
}

func (state *ledger) revoke(accountID string) {
	state.mutex.Lock()
	defer state.mutex.Unlock()
	for token, grant := range state.refreshTokens {
		if grant.accountID == accountID {
			delete(state.refreshTokens, token)
		}
	}
}

func (state *ledger) requestReset(email string) (string, bool) {
	state.mutex.Lock()
	defer state.mutex.Unlock()
	key := normalizeEmail(email)
	if _, ok := state.accountsByEmail[key]; !ok {
		return "", false
	}
	token := opaqueToken()
	state.resetTokens[token] = resetGrant{email: key, expiresAt: state.nowFn().Add(time.Hour)}
	return token, true
}

func (state *ledger) resetPassword(token string, newPassword string) error {
	if newPassword == "" {
		return errBadCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.MinCost)
	if err != nil {
		return err
	}
	state.mutex.Lock()
	defer state.mutex.Unlock()
	grant, ok := state.resetTokens[token]
	delete(state.resetTokens, token)
	if !ok || state.nowFn().After(grant.expiresAt) {
		return errBadResetToken
	}
	found, ok := state.accountsByEmail[grant.email]
	if !ok {
		return errBadResetToken
	}
	found.passwordHash = hash
	return nil
}

func (state *ledger) hasPin(accountID string) (bool, error) {
	found, err := state.byID(accountID)
	if err != nil {
		return false, err
	}
	return len(found.pinHash) > 0, nil
}

func (state *ledger) createPin(accountID string, pin string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	if err != nil {
		return err
	}
	state.mutex.Lock()
	defer state.mutex.Unlock()
	found, ok := state.accountsByID[accountID]
	if !ok {
		return errUnknownAccount
	}
	if len(found.pinHash) > 0 {
		return errPinExists
	}
	found.pinHash = hash
	return nil
}

func (state *ledger) checkPin(accountID string, pin string) (account, error) {
	found, err := state.byID(accountID)
	if err != nil {
		return account{}, err
	}
	if len(found.pinHash) == 0 {
		return account{}, errPinMissing
	}
	if err := bcrypt.CompareHashAndPassword(found.pinHash, []byte(pin)); err != nil {
		return account{}, errBadPin
	}
	return found, nil
}

func (state *ledger) balances(accountID string) ([]balanceView, error) {
	state.mutex.Lock()
	defer state.mutex.Unlock()
	found, ok := state.accountsByID[accountID]
	if !ok {
		return nil, errUnknownAccount
	}
	views := make([]balanceView, 0, len(found.balances))
	for _, metadata := range wallet.Metadata() {
		amount, ok := found.balances[metadata.ID]
		if !ok {
			continue
		}
		views = append(views, balanceView{
			Currency:         metadata.ID,
			BalanceFormatted: amount.String(),
			Address:          depositAddress(accountID, metadata),
		})
	}
	return views, nil
}

func (state *ledger) history(accountID string) ([]historyRecord, error) {
	state.mutex.Lock()
	defer state.mutex.Unlock()
	found, ok := state.accountsByID[accountID]
	if !ok {
		return nil, errUnknownAccount
	}
	limit := len(found.history)
	if limit > historyLimit {
		limit = historyLimit
	}
	records := make([]historyRecord, limit)
	copy(records, found.history[:limit])
	return records, nil
}

func (state *ledger) send(accountID string, currency string, amount decimal.Decimal, toAddress string) (historyRecord, error) {
	metadata, ok := wallet.ResolveMetadata(currency)
	if !ok {
		return historyRecord{}, errUnknownCurrency
	}
	if !amount.IsPositive() {
		return historyRecord{}, errBadAmount
	}
	if len(strings.TrimSpace(toAddress)) < 10 {
		return historyRecord{}, errAddressTooShort
	}
	state.mutex.Lock()
	defer state.mutex.Unlock()
	found, ok := state.accountsByID[accountID]
	if !ok {
		return historyRecord{}, errUnknownAccount
	}
	if found.balances[metadata.ID].LessThan(amount) {
		return historyRecord{}, errInsufficient
	}
	found.balances[metadata.ID] = found.balances[metadata.ID].Sub(amount)
	record := historyRecord{
		ID:          uuid.NewString(),
		Type:        "send",
		Currency:    metadata.ID,
		Amount:      amount.String(),
		HumanAmount: amount.StringFixed(historyAmountDecimals),
		Address:     toAddress,
		ToAddress:   toAddress,
		Direction:   "outgoing",
		Status:      "completed",
		TxHash:      "0x" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Timestamp:   state.nowFn().UTC().Format(time.RFC3339),
	}
	found.history = append([]historyRecord{record}, found.history...)
	return record, nil
}

func (state *ledger) quote(fromCurrency string, toCurrency string, amount decimal.Decimal) (swapQuote, error) {
	from, ok := wallet.ResolveMetadata(fromCurrency)
	if !ok {
		return swapQuote{}, errUnknownCurrency
	}
	to, ok := wallet.ResolveMetadata(toCurrency)
	if !ok {
		return swapQuote{}, errUnknownCurrency
	}
	if strings.EqualFold(from.Symbol, to.Symbol) {
		return swapQuote{}, errSameCurrency
	}
	if !amount.IsPositive() {
		return swapQuote{}, errBadAmount
	}
	fee := amount.Mul(swapFeeRate)
	rate := from.ReferencePrice.Div(to.ReferencePrice)
	offer := swapQuote{
		QuoteID:      uuid.NewString(),
		FromCurrency: strings.ToUpper(from.Symbol),
		ToCurrency:   strings.ToUpper(to.Symbol),
		FromAmount:   amount,
		ToAmount:     amount.Sub(fee).Mul(from.ReferencePrice).Div(to.ReferencePrice),
		FeeAmount:    fee,
		Rate:         rate,
		expiresAt:    state.nowFn().Add(quoteTTL),
	}
	state.mutex.Lock()
	state.quotes[offer.QuoteID] = offer
	state.mutex.Unlock()
	return offer, nil
}

func (state *ledger) executeSwap(accountID string, quoteID string, fromCurrency string, toCurrency string, amount decimal.Decimal) (historyRecord, error) {
	from, ok := wallet.ResolveMetadata(fromCurrency)
	if !ok {
		return historyRecord{}, errUnknownCurrency
	}
	to, ok := wallet.ResolveMetadata(toCurrency)
	if !ok {
		return historyRecord{}, errUnknownCurrency
	}
	state.mutex.Lock()
	defer state.mutex.Unlock()
	offer, ok := state.quotes[quoteID]
	if !ok || state.nowFn().After(offer.expiresAt) {
		delete(state.quotes, quoteID)
		return historyRecord{}, errQuoteNotFound
	}
	if !strings.EqualFold(offer.FromCurrency, from.Symbol) || !strings.EqualFold(offer.ToCurrency, to.Symbol) || !offer.FromAmount.Equal(amount) {
		return historyRecord{}, errQuoteMismatch
	}
	found, ok := state.accountsByID[accountID]
	if !ok {
		return historyRecord{}, errUnknownAccount
	}
	if found.balances[from.ID].LessThan(amount) {
		return historyRecord{}, errInsufficient
	}
	delete(state.quotes, quoteID)
	found.balances[from.ID] = found.balances[from.ID].Sub(amount)
	found.balances[to.ID] = found.balances[to.ID].Add(offer.ToAmount)
	record := historyRecord{
		ID:              uuid.NewString(),
		Type:            "swap",
		Currency:        from.ID,
		Amount:          amount.String(),
		HumanAmount:     amount.StringFixed(historyAmountDecimals),
		Direction:       "outgoing",
		Status:          "completed",
		Timestamp:       state.nowFn().UTC().Format(time.RFC3339),
		FromCurrency:    from.ID,
		ToCurrency:      to.ID,
		FromAmount:      amount.String(),
		ToAmount:        offer.ToAmount.String(),
		FromHumanAmount: amount.StringFixed(historyAmountDecimals),
		ToHumanAmount:   offer.ToAmount.StringFixed(historyAmountDecimals),
	}
	found.history = append([]historyRecord{record}, found.history...)
	return record, nil
}

func depositAddress(accountID string, metadata wallet.AssetMetadata) string {
	digest := strings.ReplaceAll(uuid.NewSHA1(addressNamespace, []byte(accountID+"/"+metadata.ID)).String(), "-", "")
	if metadata.Chain == "bitcoin-testnet" {
		return "tb1q" + digest
	}
	return "0x" + digest
}
