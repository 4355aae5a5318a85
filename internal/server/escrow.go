package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) getEscrowPayment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	payment, err := s.escrowSvc.GetPayment(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payment":     payment,
		"allocations": payment.Allocations,
		"ledger":      payment.Ledger,
	})
}
