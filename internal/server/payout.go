package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	payoutdomain "github.com/smallbiznis/sellerledger/internal/payout/domain"
)

type payoutView struct {
	ID                snowflake.ID              `json:"id"`
	StoreID           snowflake.ID              `json:"store_id"`
	Status            payoutdomain.PayoutStatus `json:"status"`
	ScheduledDate     time.Time                 `json:"scheduled_date"`
	TotalAmount       decimal.Decimal           `json:"total_amount"`
	Currency          string                    `json:"currency"`
	Method            string                    `json:"method"`
	RetryCount        int                       `json:"retry_count"`
	NextRetryAt       *time.Time                `json:"next_retry_at,omitempty"`
	FailureReason     string                    `json:"failure_reason,omitempty"`
	TerminallyFailed  bool                      `json:"terminally_failed"`
	ProviderReference string                    `json:"provider_reference,omitempty"`
	PaidAt            *time.Time                `json:"paid_at,omitempty"`
}

func toPayoutView(p payoutdomain.SellerPayout) payoutView {
	return payoutView{
		ID:                p.ID,
		StoreID:           p.StoreID,
		Status:            p.Status,
		ScheduledDate:     p.ScheduledDate,
		TotalAmount:       p.TotalAmount,
		Currency:          p.Currency,
		Method:            p.Method,
		RetryCount:        p.RetryCount,
		NextRetryAt:       p.NextRetryAt,
		FailureReason:     sanitizeFailureReason(p.FailureReason),
		TerminallyFailed:  p.TerminallyFailed(),
		ProviderReference: p.ProviderReference,
		PaidAt:            p.PaidAt,
	}
}

// sanitizeFailureReason bounds what sellers see of raw provider error
// text.
func sanitizeFailureReason(reason string) string {
	const maxLen = 140
	if len(reason) > maxLen {
		return reason[:maxLen]
	}
	return reason
}

func (s *Server) listPayouts(c *gin.Context) {
	storeID, ok := parseID(c, "store_id")
	if !ok {
		return
	}
	payouts, err := s.payoutSvc.ListByStore(c.Request.Context(), storeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	views := make([]payoutView, 0, len(payouts))
	for _, p := range payouts {
		views = append(views, toPayoutView(p))
	}
	c.JSON(http.StatusOK, gin.H{"payouts": views})
}

func (s *Server) getPayout(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	payout, err := s.payoutSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payout": toPayoutView(*payout),
		"items":  payout.Items,
	})
}
