// Package transfer wires payout execution to payment-rail providers.
package transfer

import (
	"sort"
	"strings"

	"github.com/smallbiznis/sellerledger/internal/config"
	"github.com/smallbiznis/sellerledger/internal/transfer/domain"
	"github.com/smallbiznis/sellerledger/internal/transfer/sandbox"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Registry holds the configured providers keyed by normalized name.
type Registry struct {
	providers map[string]domain.Provider
	active    string
}

func NewRegistry(cfg config.Config, log *zap.Logger, sb *sandbox.Provider) *Registry {
	r := &Registry{providers: make(map[string]domain.Provider)}
	r.register(sb)

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)

	r.active = normalizeName(cfg.TransferProvider)
	log.Named("transfer.registry").Info("providers registered",
		zap.Strings("available", names),
		zap.String("active", r.active),
	)
	return r
}

func (r *Registry) register(p domain.Provider) {
	r.providers[normalizeName(p.Name())] = p
}

// Active returns the provider selected by configuration.
func (r *Registry) Active() (domain.Provider, error) {
	return r.Get(r.active)
}

func (r *Registry) Get(name string) (domain.Provider, error) {
	p, ok := r.providers[normalizeName(name)]
	if !ok {
		return nil, domain.ErrUnknownProvider
	}
	return p, nil
}

func normalizeName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

var Module = fx.Module("transfer",
	fx.Provide(sandbox.New),
	fx.Provide(NewRegistry),
)
