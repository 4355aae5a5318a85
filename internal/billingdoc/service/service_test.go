package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/sellerledger/internal/billingdoc/domain"
	billingrepo "github.com/smallbiznis/sellerledger/internal/billingdoc/repository"
	"github.com/smallbiznis/sellerledger/internal/clock"
	commissiondomain "github.com/smallbiznis/sellerledger/internal/commission/domain"
	commissionrepo "github.com/smallbiznis/sellerledger/internal/commission/repository"
	commissionservice "github.com/smallbiznis/sellerledger/internal/commission/service"
	escrowdomain "github.com/smallbiznis/sellerledger/internal/escrow/domain"
	escrowrepo "github.com/smallbiznis/sellerledger/internal/escrow/repository"
	escrowservice "github.com/smallbiznis/sellerledger/internal/escrow/service"
	settlementdomain "github.com/smallbiznis/sellerledger/internal/settlement/domain"
	settlementrepo "github.com/smallbiznis/sellerledger/internal/settlement/repository"
	settlementservice "github.com/smallbiznis/sellerledger/internal/settlement/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	node      *snowflake.Node
	fake      *clock.FakeClock
	escrowSvc escrowdomain.Service
	ruleSvc   commissiondomain.Service
	settleSvc settlementdomain.Service
	issuer    billingdomain.Issuer
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&escrowdomain.EscrowPayment{},
		&escrowdomain.EscrowAllocation{},
		&escrowdomain.EscrowLedgerEntry{},
		&commissiondomain.CommissionRule{},
		&settlementdomain.Settlement{},
		&settlementdomain.SettlementItem{},
		&settlementdomain.SettlementAdjustment{},
		&billingdomain.CommissionInvoice{},
		&billingdomain.CreditNote{},
		&billingdomain.CreditNoteLine{},
		&billingdomain.DocumentSequence{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	logger := zap.NewNop()

	eRepo := escrowrepo.NewRepository(db)
	cRepo := commissionrepo.NewRepository(db)
	sRepo := settlementrepo.NewRepository(db)
	bRepo := billingrepo.NewRepository(db)

	cParams := commissionservice.Params{Log: logger, GenID: node, Repo: cRepo, Clock: fake}

	return &fixture{
		node: node,
		fake: fake,
		escrowSvc: escrowservice.NewService(escrowservice.Params{
			Log: logger, GenID: node, Repo: eRepo, Clock: fake,
		}),
		ruleSvc: commissionservice.NewService(cParams),
		settleSvc: settlementservice.NewService(settlementservice.Params{
			Log: logger, GenID: node, Repo: sRepo, EscrowRepo: eRepo,
			Resolver: commissionservice.NewResolver(cParams), Clock: fake,
		}),
		issuer: NewIssuer(Params{
			Log: logger, GenID: node, Repo: bRepo, SettlementRepo: sRepo, Clock: fake,
		}),
	}
}

// finalizedSettlement walks one store from payment to a FINALIZED
// settlement ready for invoicing.
func (f *fixture) finalizedSettlement(t *testing.T, amount string) *settlementdomain.Settlement {
	t.Helper()
	ctx := context.Background()
	storeID := f.node.Generate()

	payment, err := f.escrowSvc.Open(ctx, escrowdomain.OpenRequest{
		OrderID:     f.node.Generate(),
		BuyerID:     f.node.Generate(),
		TotalAmount: decimal.RequireFromString(amount),
		Currency:    "USD",
		PerStore: []escrowdomain.StoreAmount{
			{StoreID: storeID, ShipmentID: f.node.Generate(), Amount: decimal.RequireFromString(amount)},
		},
	})
	require.NoError(t, err)
	require.NoError(t, f.escrowSvc.MarkEligible(ctx, payment.Allocations[0].ID, f.fake.Now()))

	settlement, err := f.settleSvc.BuildOrUpdate(ctx, storeID, 2024, 3)
	require.NoError(t, err)
	require.NoError(t, f.settleSvc.Finalize(ctx, settlement.ID))

	got, err := f.settleSvc.Get(ctx, settlement.ID)
	require.NoError(t, err)
	return got
}

func seedGlobalRule(t *testing.T, f *fixture, pct int64) {
	t.Helper()
	require.NoError(t, f.ruleSvc.Create(context.Background(), &commissiondomain.CommissionRule{
		RuleType:       commissiondomain.RuleTypeGlobal,
		CommissionRate: decimal.NewFromInt(pct),
		IsActive:       true,
	}))
}

func TestIssueInvoice_SequentialNumbers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedGlobalRule(t, f, 10)

	want := []string{"INV-2024-00001", "INV-2024-00002", "INV-2024-00003"}
	for i, amount := range []string{"100.00", "80.00", "50.00"} {
		settlement := f.finalizedSettlement(t, amount)
		invoice, err := f.issuer.IssueInvoice(ctx, settlement.ID)
		require.NoError(t, err)
		assert.Equal(t, want[i], invoice.Number)
		assert.Equal(t, int64(i+1), invoice.Seq)
		assert.Equal(t, billingdomain.InvoiceStatusIssued, invoice.Status)
	}
}

func TestIssueInvoice_ConcurrentIssuanceUniqueNumbers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedGlobalRule(t, f, 10)

	const n = 8
	settlements := make([]*settlementdomain.Settlement, n)
	for i := range settlements {
		settlements[i] = f.finalizedSettlement(t, "100.00")
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []string
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id snowflake.ID) {
			defer wg.Done()
			invoice, err := f.issuer.IssueInvoice(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if assert.NoError(t, err) {
				numbers = append(numbers, invoice.Number)
			}
		}(settlements[i].ID)
	}
	wg.Wait()

	require.Len(t, numbers, n)
	sort.Strings(numbers)
	want := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		want = append(want, fmt.Sprintf("INV-2024-%05d", i))
	}
	assert.Equal(t, want, numbers, "every issuance gets its own number, no gaps")
}

func TestIssueInvoice_CarriesSettlementTotals(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedGlobalRule(t, f, 10)

	settlement := f.finalizedSettlement(t, "100.00")
	invoice, err := f.issuer.IssueInvoice(ctx, settlement.ID)
	require.NoError(t, err)

	assert.Equal(t, settlement.StoreID, invoice.StoreID)
	assert.Equal(t, "USD", invoice.Currency)
	assert.True(t, invoice.GrossSales.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, invoice.CommissionAmount.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, invoice.NetPayable.Equal(decimal.RequireFromString("90.00")))
}

func TestIssueInvoice_RequiresFinalized(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedGlobalRule(t, f, 10)
	storeID := f.node.Generate()

	payment, err := f.escrowSvc.Open(ctx, escrowdomain.OpenRequest{
		OrderID:     f.node.Generate(),
		BuyerID:     f.node.Generate(),
		TotalAmount: decimal.RequireFromString("100.00"),
		Currency:    "USD",
		PerStore: []escrowdomain.StoreAmount{
			{StoreID: storeID, ShipmentID: f.node.Generate(), Amount: decimal.RequireFromString("100.00")},
		},
	})
	require.NoError(t, err)
	require.NoError(t, f.escrowSvc.MarkEligible(ctx, payment.Allocations[0].ID, f.fake.Now()))

	draft, err := f.settleSvc.BuildOrUpdate(ctx, storeID, 2024, 3)
	require.NoError(t, err)

	_, err = f.issuer.IssueInvoice(ctx, draft.ID)
	assert.ErrorIs(t, err, billingdomain.ErrInvalidState)
}

func TestIssueInvoice_OnePerSettlement(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedGlobalRule(t, f, 10)

	settlement := f.finalizedSettlement(t, "100.00")
	_, err := f.issuer.IssueInvoice(ctx, settlement.ID)
	require.NoError(t, err)

	_, err = f.issuer.IssueInvoice(ctx, settlement.ID)
	assert.ErrorIs(t, err, billingdomain.ErrAlreadyInvoiced)
}

func TestIssueCreditNote_PartialKeepsInvoiceIssued(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedGlobalRule(t, f, 10)

	settlement := f.finalizedSettlement(t, "100.00")
	invoice, err := f.issuer.IssueInvoice(ctx, settlement.ID)
	require.NoError(t, err)

	note, err := f.issuer.IssueCreditNote(ctx, billingdomain.IssueCreditNoteRequest{
		InvoiceID: invoice.ID,
		Kind:      billingdomain.CreditNoteKindPartial,
		Reason:    "commission overcharged on returned item",
		Lines: []billingdomain.CreditNoteLineInput{
			{Description: "commission on returned item", Amount: decimal.RequireFromString("2.50")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "CN-2024-00001", note.Number)
	assert.True(t, note.Amount.Equal(decimal.RequireFromString("2.50")))

	got, err := f.issuer.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, billingdomain.InvoiceStatusIssued, got.Status)
}

func TestIssueCreditNote_FullCorrectsInvoice(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedGlobalRule(t, f, 10)

	settlement := f.finalizedSettlement(t, "100.00")
	invoice, err := f.issuer.IssueInvoice(ctx, settlement.ID)
	require.NoError(t, err)

	note, err := f.issuer.IssueCreditNote(ctx, billingdomain.IssueCreditNoteRequest{
		InvoiceID: invoice.ID,
		Kind:      billingdomain.CreditNoteKindFull,
		Reason:    "settlement reversioned",
		Lines: []billingdomain.CreditNoteLineInput{
			{Description: "full commission reversal", Amount: decimal.RequireFromString("10.00")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, billingdomain.CreditNoteKindFull, note.Kind)

	got, err := f.issuer.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, billingdomain.InvoiceStatusCorrected, got.Status)

	// A corrected invoice takes no further notes.
	_, err = f.issuer.IssueCreditNote(ctx, billingdomain.IssueCreditNoteRequest{
		InvoiceID: invoice.ID,
		Kind:      billingdomain.CreditNoteKindPartial,
		Reason:    "late correction",
		Lines: []billingdomain.CreditNoteLineInput{
			{Description: "x", Amount: decimal.RequireFromString("1.00")},
		},
	})
	assert.ErrorIs(t, err, billingdomain.ErrInvalidState)
}

func TestIssueCreditNote_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedGlobalRule(t, f, 10)

	settlement := f.finalizedSettlement(t, "100.00")
	invoice, err := f.issuer.IssueInvoice(ctx, settlement.ID)
	require.NoError(t, err)

	_, err = f.issuer.IssueCreditNote(ctx, billingdomain.IssueCreditNoteRequest{
		InvoiceID: invoice.ID, Kind: "BOGUS", Reason: "x",
		Lines: []billingdomain.CreditNoteLineInput{{Description: "x", Amount: decimal.RequireFromString("1.00")}},
	})
	assert.ErrorIs(t, err, billingdomain.ErrInvalidKind)

	_, err = f.issuer.IssueCreditNote(ctx, billingdomain.IssueCreditNoteRequest{
		InvoiceID: invoice.ID, Kind: billingdomain.CreditNoteKindPartial, Reason: "x",
	})
	assert.ErrorIs(t, err, billingdomain.ErrNoLines)

	// A partial note cannot exceed the invoiced commission.
	_, err = f.issuer.IssueCreditNote(ctx, billingdomain.IssueCreditNoteRequest{
		InvoiceID: invoice.ID, Kind: billingdomain.CreditNoteKindPartial, Reason: "x",
		Lines: []billingdomain.CreditNoteLineInput{{Description: "x", Amount: decimal.RequireFromString("10.01")}},
	})
	assert.ErrorIs(t, err, billingdomain.ErrInvalidAmount)
}
