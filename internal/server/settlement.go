package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	settlementdomain "github.com/smallbiznis/sellerledger/internal/settlement/domain"
)

type adjustmentRequest struct {
	OriginalYear  int             `json:"original_year" binding:"required"`
	OriginalMonth int             `json:"original_month" binding:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason" binding:"required"`
}

func (s *Server) getSettlement(c *gin.Context) {
	storeID, ok := parseID(c, "store_id")
	if !ok {
		return
	}
	year, ok := parseInt(c, "year")
	if !ok {
		return
	}
	month, ok := parseInt(c, "month")
	if !ok {
		return
	}

	settlement, err := s.settlementSvc.GetLatest(c.Request.Context(), storeID, year, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"settlement":  settlement,
		"items":       settlement.Items,
		"adjustments": settlement.Adjustments,
	})
}

func (s *Server) finalizeSettlement(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.settlementSvc.Finalize(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	settlement, err := s.settlementSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settlement": settlement})
}

func (s *Server) addSettlementAdjustment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var body adjustmentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, settlementdomain.ErrInvalidPeriod)
		return
	}
	req := settlementdomain.AdjustmentRequest{
		OriginalYear:  body.OriginalYear,
		OriginalMonth: body.OriginalMonth,
		Amount:        body.Amount,
		Reason:        body.Reason,
	}
	if err := s.settlementSvc.AddAdjustment(c.Request.Context(), id, req); err != nil {
		AbortWithError(c, err)
		return
	}
	settlement, err := s.settlementSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settlement": settlement})
}
