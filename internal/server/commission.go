package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	commissiondomain "github.com/smallbiznis/sellerledger/internal/commission/domain"
)

type commissionRuleRequest struct {
	RuleType       string          `json:"rule_type" binding:"required"`
	CategoryID     *snowflake.ID   `json:"category_id"`
	StoreID        *snowflake.ID   `json:"store_id"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	IsActive       *bool           `json:"is_active"`
	EffectiveFrom  *time.Time      `json:"effective_from"`
	EffectiveTo    *time.Time      `json:"effective_to"`
}

func (req commissionRuleRequest) toRule() *commissiondomain.CommissionRule {
	rule := &commissiondomain.CommissionRule{
		RuleType:       commissiondomain.RuleType(req.RuleType),
		CategoryID:     req.CategoryID,
		StoreID:        req.StoreID,
		CommissionRate: req.CommissionRate,
		IsActive:       true,
		EffectiveFrom:  req.EffectiveFrom,
		EffectiveTo:    req.EffectiveTo,
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	return rule
}

func (s *Server) createCommissionRule(c *gin.Context) {
	var req commissionRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, commissiondomain.ErrInvalidScope)
		return
	}

	rule := req.toRule()
	if err := s.ruleSvc.Create(c.Request.Context(), rule); err != nil {
		s.abortRuleWrite(c, rule, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (s *Server) updateCommissionRule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req commissionRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, commissiondomain.ErrInvalidScope)
		return
	}

	rule := req.toRule()
	rule.ID = id
	if err := s.ruleSvc.Update(c.Request.Context(), rule); err != nil {
		s.abortRuleWrite(c, rule, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// abortRuleWrite enriches an overlap rejection with the conflicting
// rule ids so the operator can see what blocks the write.
func (s *Server) abortRuleWrite(c *gin.Context, rule *commissiondomain.CommissionRule, err error) {
	if !errors.Is(err, commissiondomain.ErrOverlappingWindow) {
		AbortWithError(c, err)
		return
	}
	overlapping, lookupErr := s.ruleSvc.GetOverlapping(c.Request.Context(), rule)
	if lookupErr != nil {
		AbortWithError(c, err)
		return
	}
	ids := make([]snowflake.ID, 0, len(overlapping))
	for _, r := range overlapping {
		ids = append(ids, r.ID)
	}
	AbortWithError(c, &ConflictError{
		Cause:   err,
		Details: gin.H{"overlapping_rule_ids": ids},
	})
}

func (s *Server) deactivateCommissionRule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.ruleSvc.Deactivate(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listCommissionRules(c *gin.Context) {
	filter := commissiondomain.ListRequest{
		RuleType:   commissiondomain.RuleType(c.Query("rule_type")),
		ActiveOnly: c.Query("active") == "true",
	}
	if raw := c.Query("store_id"); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, commissiondomain.ErrInvalidScope)
			return
		}
		filter.StoreID = &id
	}
	if raw := c.Query("category_id"); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, commissiondomain.ErrInvalidScope)
			return
		}
		filter.CategoryID = &id
	}

	rules, err := s.ruleSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}
