// Package server exposes the operational HTTP surface: rule
// administration, settlement and payout reads, and health/metrics.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	billingdomain "github.com/smallbiznis/sellerledger/internal/billingdoc/domain"
	commissiondomain "github.com/smallbiznis/sellerledger/internal/commission/domain"
	"github.com/smallbiznis/sellerledger/internal/config"
	escrowdomain "github.com/smallbiznis/sellerledger/internal/escrow/domain"
	payoutdomain "github.com/smallbiznis/sellerledger/internal/payout/domain"
	settlementdomain "github.com/smallbiznis/sellerledger/internal/settlement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	escrowSvc     escrowdomain.Service
	ruleSvc       commissiondomain.Service
	settlementSvc settlementdomain.Service
	payoutSvc     payoutdomain.Service
	issuer        billingdomain.Issuer
}

type Params struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	EscrowSvc     escrowdomain.Service
	RuleSvc       commissiondomain.Service
	SettlementSvc settlementdomain.Service
	PayoutSvc     payoutdomain.Service
	Issuer        billingdomain.Issuer
}

func NewServer(p Params) *Server {
	s := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		escrowSvc:     p.EscrowSvc,
		ruleSvc:       p.RuleSvc,
		settlementSvc: p.SettlementSvc,
		payoutSvc:     p.PayoutSvc,
		issuer:        p.Issuer,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")

	rules := v1.Group("/commission-rules")
	rules.POST("", s.createCommissionRule)
	rules.GET("", s.listCommissionRules)
	rules.PUT("/:id", s.updateCommissionRule)
	rules.DELETE("/:id", s.deactivateCommissionRule)

	v1.GET("/escrow-payments/:id", s.getEscrowPayment)

	settlements := v1.Group("/stores/:store_id/settlements")
	settlements.GET("/:year/:month", s.getSettlement)
	v1.POST("/settlements/:id/finalize", s.finalizeSettlement)
	v1.POST("/settlements/:id/adjustments", s.addSettlementAdjustment)

	v1.GET("/stores/:store_id/payouts", s.listPayouts)
	v1.GET("/payouts/:id", s.getPayout)

	v1.GET("/stores/:store_id/invoices", s.listInvoices)
	v1.GET("/invoices/:id", s.getInvoice)
	v1.GET("/invoices/:id/credit-notes", s.listCreditNotes)
	v1.POST("/invoices/:id/credit-notes", s.issueCreditNote)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
