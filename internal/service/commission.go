package service

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

// commissionEngine implements ports.CommissionEngine. It is a pure
// calculator over minor units; floor rounding means the rounding remainder
// always lands with the vendor or rider, never the platform.
type commissionEngine struct{}

func NewCommissionEngine() ports.CommissionEngine {
	return &commissionEngine{}
}

// cut computes floor(amount * rate) + flatFee, clamped to [0, amount].
func cut(amount int64, rule *domain.CommissionRule) int64 {
	c := rule.Rate.Mul(decimal.NewFromInt(amount)).Floor().IntPart() + rule.FlatFee
	if c < 0 {
		return 0
	}
	if c > amount {
		return amount
	}
	return c
}

func (e *commissionEngine) SplitOrder(subtotal int64, rule *domain.CommissionRule) domain.OrderSplit {
	platform := cut(subtotal, rule)
	return domain.OrderSplit{
		VendorAmount:   subtotal - platform,
		PlatformAmount: platform,
	}
}

func (e *commissionEngine) SplitDelivery(deliveryFee int64, rule *domain.CommissionRule) domain.DeliverySplit {
	platform := cut(deliveryFee, rule)
	return domain.DeliverySplit{
		RiderAmount:    deliveryFee - platform,
		PlatformAmount: platform,
	}
}

// cachedRuleSource fronts the commission_rules table with a short in-process
// cache. Rules change rarely; a stale read within the TTL only matters at a
// rule boundary, and the rule snapshot in the transaction legs keeps each
// split auditable regardless.
type cachedRuleSource struct {
	repo  ports.CommissionRuleRepository
	cache *cache.Cache
}

func NewCachedRuleSource(repo ports.CommissionRuleRepository, ttl time.Duration) ports.RuleSource {
	return &cachedRuleSource{
		repo:  repo,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (s *cachedRuleSource) Effective(ctx context.Context, resourceType domain.ResourceType, at time.Time) (*domain.CommissionRule, error) {
	key := string(resourceType)
	if cached, ok := s.cache.Get(key); ok {
		rule := cached.(*domain.CommissionRule)
		if rule.AppliesAt(at) {
			return rule, nil
		}
		// Cached rule's window ended, fall through to the repository.
	}

	rule, err := s.repo.GetEffective(ctx, resourceType, at)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, rule)
	return rule, nil
}
