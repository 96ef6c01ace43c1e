// Package pricing implements the continuous PricingEngine of spec §4.2.
// The evaluation order (steps 1-9) is load-bearing and must not be
// reordered.
package pricing

import (
	"fmt"
	"math"
	"sort"

	"github.com/altis-air/altis-retail-engine/internal/apperr"
	"github.com/altis-air/altis-retail-engine/internal/domain"
)

type Config struct {
	DemandMinMultiplier float64
	DemandMaxMultiplier float64
	BundleDiscount      float64 // e.g. 0.9 for a 10% bundle discount
}

type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Price computes the integer NUC price for one product under ctx,
// following spec §4.2 steps 1-9 in order. Deterministic given fixed
// inputs (P6).
func (e *Engine) Price(product domain.Product, ctx Context) (domain.Money, error) {
	// Step 1: start from base price, in floating precision internally.
	price := float64(product.BasePrice)

	// Step 2-3: apply matching rules, sorted by priority ascending.
	if ctx.RuleSet != nil {
		rules := applicableRules(ctx.RuleSet.PricingRules, product.Type)
		for _, rule := range rules {
			if !rule.AppliesTo(product.Type, ctx.DaysUntilDeparture) {
				continue
			}
			for _, adj := range rule.Adjustments {
				var err error
				price, err = applyAdjustment(price, adj, ctx)
				if err != nil {
					return 0, apperr.Wrap(apperr.KindInternal, "invalid pricing rule", err)
				}
				if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
					return 0, apperr.New(apperr.KindInternal, fmt.Sprintf("rule %s produced an invalid price", rule.RuleID))
				}
			}
		}
	}

	// Step 4: demand multiplier. Capacity=0 means utilization is
	// undefined; spec says no demand adjustment applies in that case.
	demandMultiplier := 1.0
	if !ctx.CapacityIsZero {
		demandMultiplier = clamp(1+ctx.Utilization*ctx.Utilization*2, e.cfg.DemandMinMultiplier, e.cfg.DemandMaxMultiplier)
	}

	// Step 5: time multiplier, piecewise by days until departure.
	timeMultiplier := timeMultiplierFor(ctx.DaysUntilDeparture)

	// Step 6.
	if !ctx.CapacityIsZero {
		price *= demandMultiplier * timeMultiplier
	} else {
		price *= timeMultiplier
	}

	// Step 7: bundle discount.
	if ctx.IsBundled {
		price *= e.cfg.BundleDiscount
	}

	// Step 8: clamp to rule-declared min/max multiplier of base price.
	if ctx.RuleSet != nil {
		price = clampToRuleBounds(price, float64(product.BasePrice), ctx.RuleSet.PricingRules, product.Type, ctx.DaysUntilDeparture)
	}

	// Step 9: round half-to-even to minor units.
	return domain.Money(int64(math.RoundToEven(price))), nil
}

func applicableRules(rules []domain.PricingRule, productType domain.ProductType) []domain.PricingRule {
	filtered := make([]domain.PricingRule, 0, len(rules))
	for _, r := range rules {
		if r.ProductType != "" && r.ProductType != productType {
			continue
		}
		if r.Condition.ProductType == "" || r.Condition.ProductType == productType {
			filtered = append(filtered, r)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Priority < filtered[j].Priority })
	return filtered
}

func applyAdjustment(price float64, adj domain.Adjustment, ctx Context) (float64, error) {
	switch adj.Kind {
	case domain.AdjustmentMultiplier:
		return price * adj.Value, nil
	case domain.AdjustmentFixed:
		return price + adj.Value, nil
	case domain.AdjustmentFormula:
		result, err := evaluateFormula(adj.Expr, formulaVars{
			utilization:        ctx.Utilization,
			daysUntilDeparture: float64(ctx.DaysUntilDeparture),
		})
		if err != nil {
			return 0, err
		}
		return result, nil
	default:
		return 0, fmt.Errorf("unknown adjustment kind %q", adj.Kind)
	}
}

func timeMultiplierFor(daysUntilDeparture int) float64 {
	switch {
	case daysUntilDeparture <= 1:
		return 1.5
	case daysUntilDeparture <= 7:
		return 1.2
	case daysUntilDeparture >= 60:
		return 0.8
	default:
		return 1.0
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampToRuleBounds(price, basePrice float64, rules []domain.PricingRule, productType domain.ProductType, daysUntilDeparture int) float64 {
	for _, r := range applicableRules(rules, productType) {
		if !r.AppliesTo(productType, daysUntilDeparture) {
			continue
		}
		if r.MinMultiplier != nil {
			price = math.Max(price, basePrice*(*r.MinMultiplier))
		}
		if r.MaxMultiplier != nil {
			price = math.Min(price, basePrice*(*r.MaxMultiplier))
		}
	}
	return price
}
