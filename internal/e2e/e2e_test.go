package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/sellerledger/internal/billingdoc/domain"
	billingrepo "github.com/smallbiznis/sellerledger/internal/billingdoc/repository"
	billingservice "github.com/smallbiznis/sellerledger/internal/billingdoc/service"
	"github.com/smallbiznis/sellerledger/internal/clock"
	commissiondomain "github.com/smallbiznis/sellerledger/internal/commission/domain"
	commissionrepo "github.com/smallbiznis/sellerledger/internal/commission/repository"
	commissionservice "github.com/smallbiznis/sellerledger/internal/commission/service"
	escrowdomain "github.com/smallbiznis/sellerledger/internal/escrow/domain"
	escrowrepo "github.com/smallbiznis/sellerledger/internal/escrow/repository"
	escrowservice "github.com/smallbiznis/sellerledger/internal/escrow/service"
	payoutdomain "github.com/smallbiznis/sellerledger/internal/payout/domain"
	payoutrepo "github.com/smallbiznis/sellerledger/internal/payout/repository"
	payoutservice "github.com/smallbiznis/sellerledger/internal/payout/service"
	settlementdomain "github.com/smallbiznis/sellerledger/internal/settlement/domain"
	settlementrepo "github.com/smallbiznis/sellerledger/internal/settlement/repository"
	settlementservice "github.com/smallbiznis/sellerledger/internal/settlement/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stack struct {
	node      *snowflake.Node
	fake      *clock.FakeClock
	escrowSvc escrowdomain.Service
	ruleSvc   commissiondomain.Service
	settleSvc settlementdomain.Service
	payoutSvc payoutdomain.Service
	issuer    billingdomain.Issuer
}

func newStack(t *testing.T) *stack {
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
		&payoutdomain.SellerPayout{},
		&payoutdomain.SellerPayoutItem{},
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
	pRepo := payoutrepo.NewRepository(db)
	bRepo := billingrepo.NewRepository(db)

	eSvc := escrowservice.NewService(escrowservice.Params{
		Log: logger, GenID: node, Repo: eRepo, Clock: fake,
	})
	cParams := commissionservice.Params{Log: logger, GenID: node, Repo: cRepo, Clock: fake}

	return &stack{
		node:      node,
		fake:      fake,
		escrowSvc: eSvc,
		ruleSvc:   commissionservice.NewService(cParams),
		settleSvc: settlementservice.NewService(settlementservice.Params{
			Log: logger, GenID: node, Repo: sRepo, EscrowRepo: eRepo,
			Resolver: commissionservice.NewResolver(cParams), Clock: fake,
		}),
		payoutSvc: payoutservice.NewService(payoutservice.Params{
			Log: logger, GenID: node, Repo: pRepo, EscrowRepo: eRepo, EscrowSvc: eSvc, Clock: fake,
		}),
		issuer: billingservice.NewIssuer(billingservice.Params{
			Log: logger, GenID: node, Repo: bRepo, SettlementRepo: sRepo, Clock: fake,
		}),
	}
}

// The full seller-funds lifecycle: a split order flows through escrow,
// per-scope commission, payout, a versioned settlement, and an invoice
// with a correcting credit note.
func TestOrderToInvoiceLifecycle(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	storeA, storeB := s.node.Generate(), s.node.Generate()

	// Platform default 10%, negotiated 5% for store A.
	require.NoError(t, s.ruleSvc.Create(ctx, &commissiondomain.CommissionRule{
		RuleType:       commissiondomain.RuleTypeGlobal,
		CommissionRate: decimal.NewFromInt(10),
		IsActive:       true,
	}))
	require.NoError(t, s.ruleSvc.Create(ctx, &commissiondomain.CommissionRule{
		RuleType:       commissiondomain.RuleTypeSeller,
		StoreID:        &storeA,
		CommissionRate: decimal.NewFromInt(5),
		IsActive:       true,
	}))

	// A 100 USD order split 60/40 across two stores.
	payment, err := s.escrowSvc.Open(ctx, escrowdomain.OpenRequest{
		OrderID:     s.node.Generate(),
		BuyerID:     s.node.Generate(),
		TotalAmount: decimal.RequireFromString("100.00"),
		Currency:    "USD",
		PerStore: []escrowdomain.StoreAmount{
			{StoreID: storeA, ShipmentID: s.node.Generate(), Amount: decimal.RequireFromString("60.00")},
			{StoreID: storeB, ShipmentID: s.node.Generate(), Amount: decimal.RequireFromString("40.00")},
		},
	})
	require.NoError(t, err)
	allocA, allocB := payment.Allocations[0].ID, payment.Allocations[1].ID

	// Return windows close; both allocations become payout-eligible.
	for _, id := range []snowflake.ID{allocA, allocB} {
		require.NoError(t, s.escrowSvc.MarkEligible(ctx, id, s.fake.Now()))
	}

	// Store A is paid out; its allocation cannot be claimed twice.
	payout, err := s.payoutSvc.ScheduleForStore(ctx, storeA, s.fake.Now().Add(time.Second))
	require.NoError(t, err)
	_, err = s.payoutSvc.ScheduleForStore(ctx, storeA, s.fake.Now().Add(time.Second))
	require.ErrorIs(t, err, payoutdomain.ErrNothingEligible)

	require.NoError(t, s.payoutSvc.MarkProcessing(ctx, payout.ID))
	require.NoError(t, s.payoutSvc.RecordSuccess(ctx, payout.ID, "tr_e2e"))

	releasedA, err := s.escrowSvc.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, escrowdomain.AllocationStatusReleased, releasedA.Allocations[0].Status)

	// A buyer keeps 10 USD of store B's goods back.
	require.NoError(t, s.escrowSvc.Refund(ctx, allocB, decimal.RequireFromString("10.00")))

	// March rollups: store A nets 57.00 under its negotiated 5%, store
	// B nets 27.00 under the 10% default on the post-refund base.
	settleA, err := s.settleSvc.BuildOrUpdate(ctx, storeA, 2024, 3)
	require.NoError(t, err)
	assert.True(t, settleA.TotalCommission.Equal(decimal.RequireFromString("3.00")))
	assert.True(t, settleA.NetPayable.Equal(decimal.RequireFromString("57.00")))

	settleB, err := s.settleSvc.BuildOrUpdate(ctx, storeB, 2024, 3)
	require.NoError(t, err)
	assert.True(t, settleB.TotalCommission.Equal(decimal.RequireFromString("3.00")))
	assert.True(t, settleB.NetPayable.Equal(decimal.RequireFromString("27.00")))

	// Store A finalizes and is invoiced.
	require.NoError(t, s.settleSvc.Finalize(ctx, settleA.ID))
	invoice, err := s.issuer.IssueInvoice(ctx, settleA.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-00001", invoice.Number)
	assert.True(t, invoice.CommissionAmount.Equal(decimal.RequireFromString("3.00")))

	// A late correction supersedes the invoice and reopens the period
	// as version 2.
	note, err := s.issuer.IssueCreditNote(ctx, billingdomain.IssueCreditNoteRequest{
		InvoiceID: invoice.ID,
		Kind:      billingdomain.CreditNoteKindFull,
		Reason:    "commission recalculated",
		Lines: []billingdomain.CreditNoteLineInput{
			{Description: "march commission reversal", Amount: decimal.RequireFromString("3.00")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "CN-2024-00001", note.Number)

	corrected, err := s.issuer.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, billingdomain.InvoiceStatusCorrected, corrected.Status)

	v2, err := s.settleSvc.BuildOrUpdate(ctx, storeA, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)
	assert.Equal(t, settlementdomain.SettlementStatusDraft, v2.Status)
}
