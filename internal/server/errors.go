package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/sellerledger/internal/billingdoc/domain"
	commissiondomain "github.com/smallbiznis/sellerledger/internal/commission/domain"
	escrowdomain "github.com/smallbiznis/sellerledger/internal/escrow/domain"
	payoutdomain "github.com/smallbiznis/sellerledger/internal/payout/domain"
	settlementdomain "github.com/smallbiznis/sellerledger/internal/settlement/domain"
	transferdomain "github.com/smallbiznis/sellerledger/internal/transfer/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ConflictError carries extra detail for 409 responses, such as the
// overlapping rule ids on a commission-rule write.
type ConflictError struct {
	Cause   error
	Details any
}

func (e *ConflictError) Error() string { return e.Cause.Error() }
func (e *ConflictError) Unwrap() error { return e.Cause }

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflict.Cause.Error(),
			Details: conflict.Details,
		}
	}

	switch {
	case isNotFound(err):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "resource not found"}
	case isConflict(err):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: err.Error()}
	case isBadRequest(err):
		return http.StatusBadRequest, errorPayload{Type: "invalid_request", Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, escrowdomain.ErrNotFound) ||
		errors.Is(err, commissiondomain.ErrNotFound) ||
		errors.Is(err, settlementdomain.ErrNotFound) ||
		errors.Is(err, payoutdomain.ErrNotFound) ||
		errors.Is(err, billingdomain.ErrNotFound) ||
		errors.Is(err, gorm.ErrRecordNotFound)
}

func isConflict(err error) bool {
	return errors.Is(err, commissiondomain.ErrOverlappingWindow) ||
		errors.Is(err, payoutdomain.ErrAllocationClaimed) ||
		errors.Is(err, payoutdomain.ErrRetriesExhausted) ||
		errors.Is(err, billingdomain.ErrAlreadyInvoiced) ||
		errors.Is(err, escrowdomain.ErrInvalidState) ||
		errors.Is(err, settlementdomain.ErrInvalidState) ||
		errors.Is(err, payoutdomain.ErrInvalidState) ||
		errors.Is(err, billingdomain.ErrInvalidState)
}

func isBadRequest(err error) bool {
	return errors.Is(err, errBadParam) ||
		errors.Is(err, commissiondomain.ErrInvalidRate) ||
		errors.Is(err, commissiondomain.ErrInvalidScope) ||
		errors.Is(err, commissiondomain.ErrInvalidRange) ||
		errors.Is(err, escrowdomain.ErrInvalidAmount) ||
		errors.Is(err, escrowdomain.ErrAmountMismatch) ||
		errors.Is(err, escrowdomain.ErrCurrencyMismatch) ||
		errors.Is(err, escrowdomain.ErrRefundExceedsAllocation) ||
		errors.Is(err, escrowdomain.ErrNoAllocations) ||
		errors.Is(err, settlementdomain.ErrInvalidPeriod) ||
		errors.Is(err, settlementdomain.ErrNoCommission) ||
		errors.Is(err, billingdomain.ErrInvalidKind) ||
		errors.Is(err, billingdomain.ErrNoLines) ||
		errors.Is(err, billingdomain.ErrInvalidAmount) ||
		errors.Is(err, transferdomain.ErrUnknownProvider)
}
