package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/educoin/internal/educoin/service"
	"github.com/jmerrifield20/educoin/internal/ledger"
	"go.uber.org/zap"
)

// Error codes returned in the "code" field of error responses.
const (
	CodeInsufficientBalance = "insufficient_balance"
	CodeInvalidAmount       = "invalid_amount"
	CodeAmountOverflow      = "amount_overflow"
	CodeInvalidParticipant  = "invalid_participant"
	CodeIssuerTransfer      = "issuer_transfer"
	CodeChainInvalid        = "chain_invalid"
	CodeBadRequest          = "bad_request"
	CodeInternal            = "internal"
)

// classify maps a submission error to its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusConflict, CodeInsufficientBalance
	case errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest, CodeInvalidAmount
	case errors.Is(err, ledger.ErrAmountOverflow):
		return http.StatusBadRequest, CodeAmountOverflow
	case errors.Is(err, ledger.ErrInvalidParticipant):
		return http.StatusBadRequest, CodeInvalidParticipant
	case errors.Is(err, service.ErrIssuerTransfer):
		return http.StatusBadRequest, CodeIssuerTransfer
	case errors.Is(err, service.ErrChainInvalid):
		return http.StatusServiceUnavailable, CodeChainInvalid
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// writeSubmitError reports a failed reward or transfer to the client.
func writeSubmitError(c *gin.Context, logger *zap.Logger, err error) {
	status, code := classify(err)
	RecordRejection(code)
	if status >= http.StatusInternalServerError {
		logger.Error("submission failed", zap.String("code", code), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}
