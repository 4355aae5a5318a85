// Package domain contains commission invoices and credit notes issued
// against finalized settlements, with gapless per-year numbering.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusIssued    InvoiceStatus = "ISSUED"
	InvoiceStatusCorrected InvoiceStatus = "CORRECTED"
)

type CreditNoteKind string

const (
	CreditNoteKindFull    CreditNoteKind = "FULL"
	CreditNoteKindPartial CreditNoteKind = "PARTIAL"
)

// Document types keyed in the sequence table.
const (
	DocTypeInvoice    = "invoice"
	DocTypeCreditNote = "credit_note"
)

// CommissionInvoice bills the platform's commission for exactly one
// finalized settlement. Numbers are gapless within (doc type, year).
type CommissionInvoice struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	SettlementID snowflake.ID `gorm:"not null;uniqueIndex:ux_commission_invoices_settlement"`
	StoreID      snowflake.ID `gorm:"not null;index"`

	Number string        `gorm:"type:text;not null;uniqueIndex:ux_commission_invoices_number"`
	Year   int           `gorm:"not null"`
	Seq    int64         `gorm:"not null"`
	Status InvoiceStatus `gorm:"type:text;not null;default:'ISSUED'"`

	Currency         string          `gorm:"type:text;not null"`
	GrossSales       decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	CommissionAmount decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	NetPayable       decimal.Decimal `gorm:"type:numeric(18,2);not null"`

	IssuedAt  time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CommissionInvoice) TableName() string { return "commission_invoices" }

// CreditNote corrects an issued invoice. A FULL note supersedes the
// invoice entirely; a PARTIAL note adjusts named lines.
type CreditNote struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	InvoiceID snowflake.ID `gorm:"not null;index"`

	Number string         `gorm:"type:text;not null;uniqueIndex:ux_credit_notes_number"`
	Year   int            `gorm:"not null"`
	Seq    int64          `gorm:"not null"`
	Kind   CreditNoteKind `gorm:"type:text;not null"`

	Currency string          `gorm:"type:text;not null"`
	Amount   decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Reason   string          `gorm:"type:text;not null"`

	IssuedAt  time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`

	// Hydrated explicitly via Repository.LoadLines.
	Lines []CreditNoteLine `gorm:"-"`
}

// TableName sets the database table name.
func (CreditNote) TableName() string { return "credit_notes" }

type CreditNoteLine struct {
	ID           snowflake.ID    `gorm:"primaryKey"`
	CreditNoteID snowflake.ID    `gorm:"not null;index"`
	Description  string          `gorm:"type:text;not null"`
	Amount       decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	CreatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CreditNoteLine) TableName() string { return "credit_note_lines" }

// DocumentSequence is the single-writer counter behind gapless document
// numbers. One row per (doc type, year); allocation happens inside the
// issuing transaction so a rollback never burns a number.
type DocumentSequence struct {
	DocType string `gorm:"primaryKey;type:text"`
	Year    int    `gorm:"primaryKey"`
	Next    int64  `gorm:"not null;default:0"`
}

// TableName sets the database table name.
func (DocumentSequence) TableName() string { return "document_sequences" }
