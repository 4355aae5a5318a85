package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sellerledger/internal/clock"
	commissiondomain "github.com/smallbiznis/sellerledger/internal/commission/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  commissiondomain.Repository
	Clock clock.Clock
}

// Resolver answers rate lookups on the settlement path.
type Resolver struct {
	log  *zap.Logger
	repo commissiondomain.Repository
}

func NewResolver(p Params) commissiondomain.Resolver {
	return &Resolver{
		log:  p.Log.Named("commission.resolver"),
		repo: p.Repo,
	}
}

func (r *Resolver) Resolve(ctx context.Context, storeID snowflake.ID, categoryID *snowflake.ID, asOf time.Time) (*commissiondomain.CommissionRule, error) {
	// Priority order, first match wins: Seller, Category, Global.
	rules, err := r.repo.ActiveRulesForScope(ctx, commissiondomain.RuleTypeSeller, &storeID, nil, asOf)
	if err != nil {
		return nil, err
	}
	if len(rules) > 0 {
		return &rules[0], nil
	}

	if categoryID != nil {
		rules, err = r.repo.ActiveRulesForScope(ctx, commissiondomain.RuleTypeCategory, nil, categoryID, asOf)
		if err != nil {
			return nil, err
		}
		if len(rules) > 0 {
			return &rules[0], nil
		}
	}

	rules, err = r.repo.ActiveRulesForScope(ctx, commissiondomain.RuleTypeGlobal, nil, nil, asOf)
	if err != nil {
		return nil, err
	}
	if len(rules) > 0 {
		return &rules[0], nil
	}
	return nil, commissiondomain.ErrNotFound
}

// Service is the admin write surface; every write runs the overlap
// guard first.
type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  commissiondomain.Repository
	clock clock.Clock
}

func NewService(p Params) commissiondomain.Service {
	return &Service{
		log:   p.Log.Named("commission.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, rule *commissiondomain.CommissionRule) error {
	if rule.ID == 0 {
		rule.ID = s.genID.Generate()
	}
	if err := rule.Validate(); err != nil {
		return err
	}
	if rule.IsActive {
		overlapping, err := s.repo.GetOverlappingRules(ctx, rule)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return commissiondomain.ErrOverlappingWindow
		}
	}
	return s.repo.Create(ctx, rule)
}

func (s *Service) Update(ctx context.Context, rule *commissiondomain.CommissionRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	if rule.IsActive {
		overlapping, err := s.repo.GetOverlappingRules(ctx, rule)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return commissiondomain.ErrOverlappingWindow
		}
	}
	return s.repo.Update(ctx, rule)
}

func (s *Service) Deactivate(ctx context.Context, id snowflake.ID) error {
	rule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	rule.IsActive = false
	rule.UpdatedAt = s.clock.Now()
	return s.repo.Update(ctx, rule)
}

func (s *Service) List(ctx context.Context, filter commissiondomain.ListRequest) ([]commissiondomain.CommissionRule, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) GetOverlapping(ctx context.Context, rule *commissiondomain.CommissionRule) ([]commissiondomain.CommissionRule, error) {
	return s.repo.GetOverlappingRules(ctx, rule)
}
