package scheduler

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
	appconfig "github.com/smallbiznis/sellerledger/internal/config"
	escrowdomain "github.com/smallbiznis/sellerledger/internal/escrow/domain"
	escrowrepo "github.com/smallbiznis/sellerledger/internal/escrow/repository"
	escrowservice "github.com/smallbiznis/sellerledger/internal/escrow/service"
	payoutdomain "github.com/smallbiznis/sellerledger/internal/payout/domain"
	payoutrepo "github.com/smallbiznis/sellerledger/internal/payout/repository"
	payoutservice "github.com/smallbiznis/sellerledger/internal/payout/service"
	settlementdomain "github.com/smallbiznis/sellerledger/internal/settlement/domain"
	settlementrepo "github.com/smallbiznis/sellerledger/internal/settlement/repository"
	settlementservice "github.com/smallbiznis/sellerledger/internal/settlement/service"
	"github.com/smallbiznis/sellerledger/internal/transfer"
	"github.com/smallbiznis/sellerledger/internal/transfer/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	sched      *Scheduler
	node       *snowflake.Node
	fake       *clock.FakeClock
	sandbox    *sandbox.Provider
	escrowSvc  escrowdomain.Service
	escrowRepo escrowdomain.Repository
	ruleSvc    commissiondomain.Service
	settleSvc  settlementdomain.Service
	payoutSvc  payoutdomain.Service
	issuer     billingdomain.Issuer
}

func setup(t *testing.T, enabledJobs ...string) *fixture {
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
	sSvc := settlementservice.NewService(settlementservice.Params{
		Log: logger, GenID: node, Repo: sRepo, EscrowRepo: eRepo,
		Resolver: commissionservice.NewResolver(cParams), Clock: fake,
	})
	pSvc := payoutservice.NewService(payoutservice.Params{
		Log: logger, GenID: node, Repo: pRepo, EscrowRepo: eRepo, EscrowSvc: eSvc,
		Clock: fake, Config: payoutservice.Config{MaxRetries: 3, BackoffBase: time.Hour},
	})
	issuer := billingservice.NewIssuer(billingservice.Params{
		Log: logger, GenID: node, Repo: bRepo, SettlementRepo: sRepo, Clock: fake,
	})

	sb := sandbox.New()
	registry := transfer.NewRegistry(appconfig.Config{TransferProvider: "sandbox"}, logger, sb)

	sched, err := New(Params{
		Log:            logger,
		EscrowRepo:     eRepo,
		SettlementSvc:  sSvc,
		SettlementRepo: sRepo,
		PayoutSvc:      pSvc,
		Issuer:         issuer,
		Transfers:      registry,
		Clock:          fake,
		Config: Config{
			RunInterval:     time.Minute,
			BatchSize:       10,
			EnabledJobs:     enabledJobs,
			TransferTimeout: 5 * time.Second,
		},
	})
	require.NoError(t, err)

	return &fixture{
		sched:      sched,
		node:       node,
		fake:       fake,
		sandbox:    sb,
		escrowSvc:  eSvc,
		escrowRepo: eRepo,
		ruleSvc:    commissionservice.NewService(cParams),
		settleSvc:  sSvc,
		payoutSvc:  pSvc,
		issuer:     issuer,
	}
}

func (f *fixture) seedGlobalRule(t *testing.T, pct int64) {
	t.Helper()
	require.NoError(t, f.ruleSvc.Create(context.Background(), &commissiondomain.CommissionRule{
		RuleType:       commissiondomain.RuleTypeGlobal,
		CommissionRate: decimal.NewFromInt(pct),
		IsActive:       true,
	}))
}

func (f *fixture) eligibleAllocation(t *testing.T, storeID snowflake.ID, amount string) snowflake.ID {
	t.Helper()
	payment, err := f.escrowSvc.Open(context.Background(), escrowdomain.OpenRequest{
		OrderID:     f.node.Generate(),
		BuyerID:     f.node.Generate(),
		TotalAmount: decimal.RequireFromString(amount),
		Currency:    "USD",
		PerStore: []escrowdomain.StoreAmount{
			{StoreID: storeID, ShipmentID: f.node.Generate(), Amount: decimal.RequireFromString(amount)},
		},
	})
	require.NoError(t, err)
	allocID := payment.Allocations[0].ID
	require.NoError(t, f.escrowSvc.MarkEligible(context.Background(), allocID, f.fake.Now()))
	return allocID
}

func TestRunOnce_FullPipeline(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seedGlobalRule(t, 10)

	storeID := f.node.Generate()
	allocID := f.eligibleAllocation(t, storeID, "100.00")

	// Tick 1: schedules the payout for the eligible allocation.
	f.fake.Advance(time.Minute)
	require.NoError(t, f.sched.RunOnce(ctx))

	payouts, err := f.payoutSvc.ListByStore(ctx, storeID)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, payoutdomain.PayoutStatusScheduled, payouts[0].Status)

	// Tick 2: the scheduled payout becomes due and is paid through the
	// sandbox rail, releasing the escrowed allocation.
	f.fake.Advance(time.Minute)
	require.NoError(t, f.sched.RunOnce(ctx))

	paid, err := f.payoutSvc.Get(ctx, payouts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, payoutdomain.PayoutStatusPaid, paid.Status)
	assert.NotEmpty(t, paid.ProviderReference)

	alloc, err := f.escrowRepo.FindAllocation(ctx, allocID)
	require.NoError(t, err)
	assert.Equal(t, escrowdomain.AllocationStatusReleased, alloc.Status)

	// Next month: the settlement sweep builds March for the store, and
	// once finalized the invoice sweep bills the commission.
	f.fake.Set(time.Date(2024, 4, 2, 3, 0, 0, 0, time.UTC))
	require.NoError(t, f.sched.RunOnce(ctx))

	settlement, err := f.settleSvc.GetLatest(ctx, storeID, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, settlementdomain.SettlementStatusDraft, settlement.Status)
	assert.True(t, settlement.NetPayable.Equal(decimal.RequireFromString("90.00")))

	require.NoError(t, f.settleSvc.Finalize(ctx, settlement.ID))
	require.NoError(t, f.sched.RunOnce(ctx))

	invoices, err := f.issuer.ListInvoicesByStore(ctx, storeID)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, "INV-2024-00001", invoices[0].Number)
}

func TestRunOnce_FailedTransferRetriesAndRecovers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seedGlobalRule(t, 10)

	storeID := f.node.Generate()
	f.eligibleAllocation(t, storeID, "50.00")

	f.fake.Advance(time.Minute)
	require.NoError(t, f.sched.RunOnce(ctx))
	payouts, err := f.payoutSvc.ListByStore(ctx, storeID)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	payoutID := payouts[0].ID

	// First attempt fails at the rail.
	f.sandbox.FailNext(payoutID, "beneficiary account closed")
	f.fake.Advance(time.Minute)
	require.NoError(t, f.sched.RunOnce(ctx))

	failed, err := f.payoutSvc.Get(ctx, payoutID)
	require.NoError(t, err)
	assert.Equal(t, payoutdomain.PayoutStatusFailed, failed.Status)
	assert.Equal(t, 1, failed.RetryCount)
	assert.Equal(t, "beneficiary account closed", failed.FailureReason)
	require.NotNil(t, failed.NextRetryAt)

	// Backoff elapses; the retry sweep re-queues and the next tick pays.
	f.fake.Set(failed.NextRetryAt.Add(time.Minute))
	require.NoError(t, f.sched.RunOnce(ctx))
	f.fake.Advance(time.Minute)
	require.NoError(t, f.sched.RunOnce(ctx))

	paid, err := f.payoutSvc.Get(ctx, payoutID)
	require.NoError(t, err)
	assert.Equal(t, payoutdomain.PayoutStatusPaid, paid.Status)
}

func TestRunOnce_RespectsEnabledJobs(t *testing.T) {
	f := setup(t, "payout_schedule")
	ctx := context.Background()
	f.seedGlobalRule(t, 10)

	storeID := f.node.Generate()
	f.eligibleAllocation(t, storeID, "50.00")

	f.fake.Advance(time.Minute)
	require.NoError(t, f.sched.RunOnce(ctx))
	f.fake.Advance(time.Minute)
	require.NoError(t, f.sched.RunOnce(ctx))

	// payout_process is disabled, so the payout never leaves SCHEDULED.
	payouts, err := f.payoutSvc.ListByStore(ctx, storeID)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, payoutdomain.PayoutStatusScheduled, payouts[0].Status)
}
