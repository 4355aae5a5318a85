package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/sellerledger/internal/billingdoc/domain"
)

func (s *Server) listInvoices(c *gin.Context) {
	storeID, ok := parseID(c, "store_id")
	if !ok {
		return
	}
	invoices, err := s.issuer.ListInvoicesByStore(c.Request.Context(), storeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

func (s *Server) getInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	invoice, err := s.issuer.GetInvoice(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice": invoice})
}

func (s *Server) listCreditNotes(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	notes, err := s.issuer.ListCreditNotes(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credit_notes": notes})
}

type creditNoteRequest struct {
	Kind   string `json:"kind" binding:"required"`
	Reason string `json:"reason" binding:"required"`
	Lines  []struct {
		Description string          `json:"description" binding:"required"`
		Amount      decimal.Decimal `json:"amount"`
	} `json:"lines" binding:"required"`
}

func (s *Server) issueCreditNote(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var body creditNoteRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, billingdomain.ErrNoLines)
		return
	}

	req := billingdomain.IssueCreditNoteRequest{
		InvoiceID: id,
		Kind:      billingdomain.CreditNoteKind(body.Kind),
		Reason:    body.Reason,
	}
	for _, line := range body.Lines {
		req.Lines = append(req.Lines, billingdomain.CreditNoteLineInput{
			Description: line.Description,
			Amount:      line.Amount,
		})
	}

	note, err := s.issuer.IssueCreditNote(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"credit_note": note})
}
