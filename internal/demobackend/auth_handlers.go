package demobackend

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type verifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type resetRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

type pinRequest struct {
	UserID string `json:"userId" binding:"required"`
	Pin    string `json:"pin" binding:"required,len=4,numeric"`
}

func (handler *Handler) handleRegister(ctx *gin.Context) {
	var request credentialsRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, failure("Please provide valid email and password."))
		return
	}
	if err := handler.state.register(request.Email, request.Password); err != nil {
		handler.respondError(ctx, err)
		return
	}
	handler.logger.Info("account registered", zap.String("verification_code", handler.state.verificationCode))
	ctx.JSON(http.StatusCreated, gin.H{"success": true, "message": "Registration successful. Check your email for the verification code."})
}

func (handler *Handler) handleVerifyOTP(ctx *gin.Context) {
	var request verifyRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, failure("Email and code are required"))
		return
	}
	verified, err := handler.state.verify(request.Email, request.Code)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	handler.respondWithTokens(ctx, verified, gin.H{
		"message": "Email verified",
		"user":    gin.H{"id": verified.id, "email": verified.email},
	})
}

func (handler *Handler) handleResendOTP(ctx *gin.Context) {
	var request emailRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, failure("Email is required"))
		return
	}
	if !handler.state.exists(request.Email) {
		handler.respondError(ctx, errUnknownAccount)
		return
	}
	handler.logger.Info("verification code resent", zap.String("verification_code", handler.state.verificationCode))
	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Verification code sent"})
}

func (handler *Handler) handleLogin(ctx *gin.Context) {
	var request credentialsRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, failure("Invalid email or password"))
		return
	}
	found, err := handler.state.login(request.Email, request.Password)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	handler.respondWithTokens(ctx, found, gin.H{"message": "Login successful"})
}

func (handler *Handler) handleRefresh(ctx *gin.Context) {
	var request refreshRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, failure("Refresh token is required"))
		return
	}
	found, replacement, err := handler.state.rotateRefresh(request.RefreshToken)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	accessToken, err := handler.tokens.issue(found.id, found.email)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "accessToken": accessToken, "refreshToken": replacement})
}

func (handler *Handler) handleRequestPasswordReset(ctx *gin.Context) {
	var request emailRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, failure("Email is required"))
		return
	}
	if token, ok := handler.state.requestReset(request.Email); ok {
		handler.logger.Info("password reset issued", zap.String("reset_token", token))
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "If the account exists, a reset link has been sent"})
}

func (handler *Handler) handleResetPassword(ctx *gin.Context) {
	var request resetRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, failure("Token and new password are required"))
		return
	}
	if err := handler.state.resetPassword(request.Token, request.NewPassword); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Password updated"})
}

func (handler *Handler) handleCurrentUser(ctx *gin.Context) {
	claims := getClaims(ctx)
	found, err := handler.state.byID(claims.Subject)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "user": gin.H{"id": found.id, "email": found.email}})
}

func (handler *Handler) handleLogout(ctx *gin.Context) {
	handler.state.revoke(getClaims(ctx).Subject)
	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

func (handler *Handler) handlePinStatus(ctx *gin.Context) {
	userID := ctx.Query("userId")
	if !ownsSubject(ctx, userID) {
		return
	}
	hasPin, err := handler.state.hasPin(getClaims(ctx).Subject)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"hasPin": hasPin}})
}

func (handler *Handler) handlePinCreate(ctx *gin.Context) {
	request, ok := handler.bindPin(ctx)
	if !ok {
		return
	}
	if err := handler.state.createPin(request.UserID, request.Pin); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"success": true, "message": "PIN created"})
}

func (handler *Handler) handlePinVerify(ctx *gin.Context) {
	request, ok := handler.bindPin(ctx)
	if !ok {
		return
	}
	if _, err := handler.state.checkPin(request.UserID, request.Pin); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "PIN verified"})
}

func (handler *Handler) handlePinLogin(ctx *gin.Context) {
	request, ok := handler.bindPin(ctx)
	if !ok {
		return
	}
	found, err := handler.state.checkPin(request.UserID, request.Pin)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	handler.respondWithTokens(ctx, found, gin.H{"message": "PIN login successful"})
}

func (handler *Handler) bindPin(ctx *gin.Context) (pinRequest, bool) {
	var request pinRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, failure("A 4-digit PIN and userId are required"))
		return pinRequest{}, false
	}
	if !ownsSubject(ctx, request.UserID) {
		return pinRequest{}, false
	}
	return request, true
}

// respondWithTokens issues an access/refresh pair for found and merges extra into the body.
func (handler *Handler) respondWithTokens(ctx *gin.Context, found account, extra gin.H) {
	accessToken, err := handler.tokens.issue(found.id, found.email)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	body := gin.H{
		"success":      true,
		"token":        accessToken,
		"accessToken":  accessToken,
		"refreshToken": handler.state.issueRefresh(found.id),
	}
	for key, value := range extra {
		body[key] = value
	}
	ctx.JSON(http.StatusOK, body)
}
