package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	InTx(ctx context.Context, fn func(Repository) error) error

	// NextSequence allocates and returns the next number for
	// (docType, year). Must be called inside the transaction that
	// persists the document, so the sequence stays gapless.
	NextSequence(ctx context.Context, docType string, year int) (int64, error)

	CreateInvoice(ctx context.Context, inv *CommissionInvoice) error
	FindInvoice(ctx context.Context, id snowflake.ID) (*CommissionInvoice, error)
	InvoiceForSettlement(ctx context.Context, settlementID snowflake.ID) (*CommissionInvoice, error)
	UpdateInvoiceStatus(ctx context.Context, id snowflake.ID, status InvoiceStatus) error
	ListInvoicesByStore(ctx context.Context, storeID snowflake.ID) ([]CommissionInvoice, error)

	CreateCreditNote(ctx context.Context, note *CreditNote) error
	CreateCreditNoteLine(ctx context.Context, line *CreditNoteLine) error
	LoadLines(ctx context.Context, note *CreditNote) error
	ListCreditNotesForInvoice(ctx context.Context, invoiceID snowflake.ID) ([]CreditNote, error)
}
