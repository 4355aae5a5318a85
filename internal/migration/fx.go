// Package migration creates the core seller-funds tables on startup so
// local and self-hosted deployments work out of the box.
package migration

import (
	billingdomain "github.com/smallbiznis/sellerledger/internal/billingdoc/domain"
	commissiondomain "github.com/smallbiznis/sellerledger/internal/commission/domain"
	escrowdomain "github.com/smallbiznis/sellerledger/internal/escrow/domain"
	payoutdomain "github.com/smallbiznis/sellerledger/internal/payout/domain"
	settlementdomain "github.com/smallbiznis/sellerledger/internal/settlement/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Run),
)

func Run(conn *gorm.DB) error {
	return conn.AutoMigrate(
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
	)
}
