package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/sellerledger/internal/billingdoc/domain"
	"github.com/smallbiznis/sellerledger/internal/billingdoc/format"
	"github.com/smallbiznis/sellerledger/internal/clock"
	settlementdomain "github.com/smallbiznis/sellerledger/internal/settlement/domain"
	"github.com/smallbiznis/sellerledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log            *zap.Logger
	GenID          *snowflake.Node
	Repo           billingdomain.Repository
	SettlementRepo settlementdomain.Repository
	Clock          clock.Clock
}

type Issuer struct {
	log            *zap.Logger
	genID          *snowflake.Node
	repo           billingdomain.Repository
	settlementRepo settlementdomain.Repository
	clock          clock.Clock
}

func NewIssuer(p Params) billingdomain.Issuer {
	return &Issuer{
		log:            p.Log.Named("billingdoc.issuer"),
		genID:          p.GenID,
		repo:           p.Repo,
		settlementRepo: p.SettlementRepo,
		clock:          p.Clock,
	}
}

func (s *Issuer) IssueInvoice(ctx context.Context, settlementID snowflake.ID) (*billingdomain.CommissionInvoice, error) {
	settlement, err := s.settlementRepo.FindByID(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if settlement.Status != settlementdomain.SettlementStatusFinalized {
		return nil, billingdomain.ErrInvalidState
	}
	if _, err := s.repo.InvoiceForSettlement(ctx, settlementID); err == nil {
		return nil, billingdomain.ErrAlreadyInvoiced
	} else if !errors.Is(err, billingdomain.ErrNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	year := now.Year()

	var invoice *billingdomain.CommissionInvoice
	err = s.repo.InTx(ctx, func(tx billingdomain.Repository) error {
		seq, err := tx.NextSequence(ctx, billingdomain.DocTypeInvoice, year)
		if err != nil {
			return err
		}
		number, err := format.FormatDocumentNumber(format.DefaultInvoiceNumberTemplate, year, seq)
		if err != nil {
			return err
		}
		invoice = &billingdomain.CommissionInvoice{
			ID:               s.genID.Generate(),
			SettlementID:     settlement.ID,
			StoreID:          settlement.StoreID,
			Number:           number,
			Year:             year,
			Seq:              seq,
			Status:           billingdomain.InvoiceStatusIssued,
			Currency:         settlement.Currency,
			GrossSales:       settlement.GrossSales,
			CommissionAmount: settlement.TotalCommission,
			NetPayable:       settlement.NetPayable,
			IssuedAt:         now,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := tx.CreateInvoice(ctx, invoice); err != nil {
			// Concurrent issuance for the same settlement loses on the
			// unique index, not on a duplicated number.
			if db.IsDuplicateKeyErr(err) {
				return billingdomain.ErrAlreadyInvoiced
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice issued",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("number", invoice.Number),
		zap.String("settlement_id", settlement.ID.String()),
	)
	return invoice, nil
}

func (s *Issuer) IssueCreditNote(ctx context.Context, req billingdomain.IssueCreditNoteRequest) (*billingdomain.CreditNote, error) {
	switch req.Kind {
	case billingdomain.CreditNoteKindFull, billingdomain.CreditNoteKindPartial:
	default:
		return nil, billingdomain.ErrInvalidKind
	}
	if len(req.Lines) == 0 {
		return nil, billingdomain.ErrNoLines
	}

	total := decimal.Zero
	for _, line := range req.Lines {
		if !line.Amount.IsPositive() {
			return nil, billingdomain.ErrInvalidAmount
		}
		total = total.Add(line.Amount)
	}

	invoice, err := s.repo.FindInvoice(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status != billingdomain.InvoiceStatusIssued {
		return nil, billingdomain.ErrInvalidState
	}
	if req.Kind == billingdomain.CreditNoteKindPartial && total.GreaterThan(invoice.CommissionAmount) {
		return nil, billingdomain.ErrInvalidAmount
	}

	now := s.clock.Now()
	year := now.Year()

	var note *billingdomain.CreditNote
	err = s.repo.InTx(ctx, func(tx billingdomain.Repository) error {
		seq, err := tx.NextSequence(ctx, billingdomain.DocTypeCreditNote, year)
		if err != nil {
			return err
		}
		number, err := format.FormatDocumentNumber(format.DefaultCreditNoteNumberTemplate, year, seq)
		if err != nil {
			return err
		}
		note = &billingdomain.CreditNote{
			ID:        s.genID.Generate(),
			InvoiceID: invoice.ID,
			Number:    number,
			Year:      year,
			Seq:       seq,
			Kind:      req.Kind,
			Currency:  invoice.Currency,
			Amount:    total,
			Reason:    req.Reason,
			IssuedAt:  now,
			CreatedAt: now,
		}
		if err := tx.CreateCreditNote(ctx, note); err != nil {
			return err
		}
		for _, in := range req.Lines {
			line := &billingdomain.CreditNoteLine{
				ID:           s.genID.Generate(),
				CreditNoteID: note.ID,
				Description:  in.Description,
				Amount:       in.Amount,
				CreatedAt:    now,
			}
			if err := tx.CreateCreditNoteLine(ctx, line); err != nil {
				return err
			}
			note.Lines = append(note.Lines, *line)
		}
		if req.Kind == billingdomain.CreditNoteKindFull {
			return tx.UpdateInvoiceStatus(ctx, invoice.ID, billingdomain.InvoiceStatusCorrected)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("credit note issued",
		zap.String("credit_note_id", note.ID.String()),
		zap.String("number", note.Number),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("kind", string(note.Kind)),
	)
	return note, nil
}

func (s *Issuer) GetInvoice(ctx context.Context, id snowflake.ID) (*billingdomain.CommissionInvoice, error) {
	return s.repo.FindInvoice(ctx, id)
}

func (s *Issuer) ListInvoicesByStore(ctx context.Context, storeID snowflake.ID) ([]billingdomain.CommissionInvoice, error) {
	return s.repo.ListInvoicesByStore(ctx, storeID)
}

func (s *Issuer) ListCreditNotes(ctx context.Context, invoiceID snowflake.ID) ([]billingdomain.CreditNote, error) {
	notes, err := s.repo.ListCreditNotesForInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	for i := range notes {
		if err := s.repo.LoadLines(ctx, &notes[i]); err != nil {
			return nil, err
		}
	}
	return notes, nil
}
