package demobackend

import (
	"net/http"
	"strings"

	"github.com/MarkoPoloResearchLab/hyperx/pkg/wallet"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type sendRequest struct {
	Currency  string `json:"currency" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
	ToAddress string `json:"toAddress" binding:"required"`
	Chain     string `json:"chain"`
}

type quoteRequest struct {
	FromCurrency string `json:"fromCurrency" binding:"required"`
	ToCurrency   string `json:"toCurrency" binding:"required"`
	FromAmount   string `json:"fromAmount" binding:"required"`
}

type executeRequest struct {
	UserID       string `json:"userId" binding:"required"`
	FromCurrency string `json:"fromCurrency" binding:"required"`
	ToCurrency   string `json:"toCurrency" binding:"required"`
	FromAmount   string `json:"fromAmount" binding:"required"`
	QuoteID      string `json:"quoteId" binding:"required"`
}

func (handler *Handler) handleBalances(ctx *gin.Context) {
	userID := ctx.Param("userId")
	if !ownsSubject(ctx, userID) {
		return
	}
	views, err := handler.state.balances(userID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": views})
}

func (handler *Handler) handleHistory(ctx *gin.Context) {
	userID := ctx.Query("userId")
	if !ownsSubject(ctx, userID) {
		return
	}
	records, err := handler.state.history(getClaims(ctx).Subject)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": records})
}

func (handler *Handler) handleSendExternal(ctx *gin.Context) {
	var request sendRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, failure("currency, amount and toAddress are required"))
		return
	}
	amount, ok := parseAmount(ctx, request.Amount)
	if !ok {
		return
	}
	if metadata, found := wallet.ResolveMetadata(request.Currency); found && request.Chain != "" {
		if expected := wallet.SendChain(strings.ToUpper(metadata.ID)); !strings.EqualFold(expected, request.Chain) {
			handler.respondError(ctx, &serviceError{status: http.StatusBadRequest, message: "Unsupported chain for " + strings.ToUpper(metadata.ID)})
			return
		}
	}
	record, err := handler.state.send(getClaims(ctx).Subject, request.Currency, amount, request.ToAddress)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Transaction submitted", "data": record})
}

func (handler *Handler) handleSwapQuote(ctx *gin.Context) {
	var request quoteRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, failure("fromCurrency, toCurrency and fromAmount are required"))
		return
	}
	amount, ok := parseAmount(ctx, request.FromAmount)
	if !ok {
		return
	}
	offer, err := handler.state.quote(request.FromCurrency, request.ToCurrency, amount)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "quote": offer})
}

func (handler *Handler) handleSwapExecute(ctx *gin.Context) {
	var request executeRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, failure("userId, currencies, fromAmount and quoteId are required"))
		return
	}
	if !ownsSubject(ctx, request.UserID) {
		return
	}
	amount, ok := parseAmount(ctx, request.FromAmount)
	if !ok {
		return
	}
	record, err := handler.state.executeSwap(request.UserID, request.QuoteID, request.FromCurrency, request.ToCurrency, amount)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Swap executed", "data": record})
}

func (handler *Handler) handleDepositAddress(ctx *gin.Context) {
	userID := ctx.Query("userId")
	if !ownsSubject(ctx, userID) {
		return
	}
	metadata, ok := wallet.ResolveMetadata(ctx.Query("currency"))
	if !ok {
		handler.respondError(ctx, errUnknownCurrency)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"address": depositAddress(getClaims(ctx).Subject, metadata),
		"chain":   metadata.Chain,
	})
}

func parseAmount(ctx *gin.Context, raw string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !amount.IsPositive() {
		ctx.JSON(http.StatusBadRequest, failure(errBadAmount.message))
		return decimal.Zero, false
	}
	return amount, true
}
