package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type CreditNoteLineInput struct {
	Description string
	Amount      decimal.Decimal
}

type IssueCreditNoteRequest struct {
	InvoiceID snowflake.ID
	Kind      CreditNoteKind
	Reason    string
	Lines     []CreditNoteLineInput
}

// Issuer issues billing documents against finalized settlements.
type Issuer interface {
	// IssueInvoice issues the commission invoice for a FINALIZED
	// settlement. A settlement carries at most one invoice.
	IssueInvoice(ctx context.Context, settlementID snowflake.ID) (*CommissionInvoice, error)

	// IssueCreditNote issues a correction against an ISSUED invoice. A
	// FULL note flips the invoice to CORRECTED.
	IssueCreditNote(ctx context.Context, req IssueCreditNoteRequest) (*CreditNote, error)

	GetInvoice(ctx context.Context, id snowflake.ID) (*CommissionInvoice, error)
	ListInvoicesByStore(ctx context.Context, storeID snowflake.ID) ([]CommissionInvoice, error)
	ListCreditNotes(ctx context.Context, invoiceID snowflake.ID) ([]CreditNote, error)
}
