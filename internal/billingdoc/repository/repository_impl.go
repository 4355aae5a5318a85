package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/sellerledger/internal/billingdoc/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) billingdomain.Repository {
	return &repository{db: db}
}

func (r *repository) InTx(ctx context.Context, fn func(billingdomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

func (r *repository) NextSequence(ctx context.Context, docType string, year int) (int64, error) {
	if r.db.Dialector.Name() == "mysql" {
		return r.nextSequenceMySQL(ctx, docType, year)
	}

	// Seed the counter row once, then bump it under the row lock the
	// UPDATE takes. RETURNING keeps allocation and read atomic.
	err := r.db.WithContext(ctx).Exec(
		`INSERT INTO document_sequences (doc_type, year, next) VALUES (?, ?, 0)
		 ON CONFLICT (doc_type, year) DO NOTHING`,
		docType, year,
	).Error
	if err != nil {
		return 0, err
	}

	var next int64
	err = r.db.WithContext(ctx).Raw(
		`UPDATE document_sequences SET next = next + 1
		 WHERE doc_type = ? AND year = ?
		 RETURNING next`,
		docType, year,
	).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

// nextSequenceMySQL bumps the counter with the LAST_INSERT_ID(expr)
// idiom, since MySQL has neither ON CONFLICT nor UPDATE ... RETURNING.
// LAST_INSERT_ID is per-connection; NextSequence only runs inside the
// issuing transaction, so both statements share one connection.
func (r *repository) nextSequenceMySQL(ctx context.Context, docType string, year int) (int64, error) {
	err := r.db.WithContext(ctx).Exec(
		`INSERT INTO document_sequences (doc_type, year, next) VALUES (?, ?, LAST_INSERT_ID(1))
		 ON DUPLICATE KEY UPDATE next = LAST_INSERT_ID(next + 1)`,
		docType, year,
	).Error
	if err != nil {
		return 0, err
	}

	var next int64
	if err := r.db.WithContext(ctx).Raw(`SELECT LAST_INSERT_ID()`).Scan(&next).Error; err != nil {
		return 0, err
	}
	return next, nil
}

func (r *repository) CreateInvoice(ctx context.Context, inv *billingdomain.CommissionInvoice) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *repository) FindInvoice(ctx context.Context, id snowflake.ID) (*billingdomain.CommissionInvoice, error) {
	var inv billingdomain.CommissionInvoice
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, billingdomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repository) InvoiceForSettlement(ctx context.Context, settlementID snowflake.ID) (*billingdomain.CommissionInvoice, error) {
	var inv billingdomain.CommissionInvoice
	err := r.db.WithContext(ctx).Where("settlement_id = ?", settlementID).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, billingdomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repository) UpdateInvoiceStatus(ctx context.Context, id snowflake.ID, status billingdomain.InvoiceStatus) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE commission_invoices SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id,
	).Error
}

func (r *repository) ListInvoicesByStore(ctx context.Context, storeID snowflake.ID) ([]billingdomain.CommissionInvoice, error) {
	var invoices []billingdomain.CommissionInvoice
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("year DESC, seq DESC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repository) CreateCreditNote(ctx context.Context, note *billingdomain.CreditNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *repository) CreateCreditNoteLine(ctx context.Context, line *billingdomain.CreditNoteLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

func (r *repository) LoadLines(ctx context.Context, note *billingdomain.CreditNote) error {
	var lines []billingdomain.CreditNoteLine
	err := r.db.WithContext(ctx).
		Where("credit_note_id = ?", note.ID).
		Order("id ASC").
		Find(&lines).Error
	if err != nil {
		return err
	}
	note.Lines = lines
	return nil
}

func (r *repository) ListCreditNotesForInvoice(ctx context.Context, invoiceID snowflake.ID) ([]billingdomain.CreditNote, error) {
	var notes []billingdomain.CreditNote
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("id ASC").
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}
