// Package offer implements the OfferGenerator and OfferStore of spec
// §4.4: bundle-template enumeration, scoring, persistence with a
// 15-minute TTL. Grounded on original_source/altis-offer/src/generator.rs's
// strategy-pattern enumeration, generalized from a hardcoded
// FlightOnly/Comfort/Premium list to admin-authored BundleTemplate rows
// loaded from RuleStore.
package offer

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/altis-air/altis-retail-engine/internal/apperr"
	"github.com/altis-air/altis-retail-engine/internal/domain"
	"github.com/altis-air/altis-retail-engine/internal/pricing"
	"github.com/altis-air/altis-retail-engine/internal/rules"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FlightSearch resolves the "external flight search interface" spec
// §4.4 step 1 treats as a collaborator.
type FlightSearch interface {
	SearchCandidates(ctx context.Context, airlineID, origin, destination string, departureDayStart, departureDayEnd int64) ([]domain.Flight, error)
}

// CatalogReader resolves ancillary products for a template's optional
// slots.
type CatalogReader interface {
	ListByAirline(ctx context.Context, airlineID string) ([]domain.Product, error)
}

// AvailabilityReader is the narrow slice of InventoryIndex the generator
// needs to compute utilization for pricing context — it never reserves.
type AvailabilityReader interface {
	Available(ctx context.Context, flightID string) (int, error)
}

// RankingFunc scores a candidate offer. The default implements spec
// §4.4 step 5 exactly; a caller may substitute an alternate ranker
// (e.g. a learned model) without touching enumeration — restored from
// original_source/altis-offer/src/ai_ranker.rs, which made the ranker a
// swappable component.
type RankingFunc func(o domain.Offer, marginNorm float64, weights domain.GenerationRule) float64

// DefaultRanking implements spec §4.4 step 5: score = w_c*P_convert + w_m*margin_norm.
func DefaultRanking(o domain.Offer, marginNorm float64, weights domain.GenerationRule) float64 {
	convertProb := math.Max(0.1, 1/(1+float64(len(o.Items))))
	return weights.ConvertWeight*convertProb + weights.MarginWeight*marginNorm
}

type Generator struct {
	flights    FlightSearch
	catalog    CatalogReader
	avail      AvailabilityReader
	ruleStore  *rules.Store
	pricer     *pricing.Engine
	ranker     RankingFunc
	log        *zap.SugaredLogger
}

func NewGenerator(flights FlightSearch, catalog CatalogReader, avail AvailabilityReader, ruleStore *rules.Store, pricer *pricing.Engine, log *zap.SugaredLogger) *Generator {
	return &Generator{
		flights:   flights,
		catalog:   catalog,
		avail:     avail,
		ruleStore: ruleStore,
		pricer:    pricer,
		ranker:    DefaultRanking,
		log:       log,
	}
}

// WithRanking overrides the default ranking function.
func (g *Generator) WithRanking(fn RankingFunc) *Generator {
	g.ranker = fn
	return g
}

// Generate runs spec §4.4 steps 1-6 for one search request and sets each
// offer's ExpiresAt, returning the top max_offers candidates. It does not
// persist them; SearchService.Generate saves them to the OfferStore.
func (g *Generator) Generate(ctx context.Context, principalID string, search domain.SearchContext, now time.Time) ([]domain.Offer, error) {
	airlineID := currentAirlineID(ctx)

	ruleSet, err := g.ruleStore.Snapshot(ctx, airlineID)
	if err != nil {
		return nil, err
	}

	dayStart, dayEnd, err := parseDepartureWindow(search.DepartureDay)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid departure_day", err)
	}
	flights, err := g.flights.SearchCandidates(ctx, airlineID, search.Origin, search.Destination, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	if len(flights) == 0 {
		return nil, nil
	}

	products, err := g.catalog.ListByAirline(ctx, airlineID)
	if err != nil {
		return nil, err
	}
	byType := productsByType(products)

	templates := sortedTemplates(ruleSet.BundleTemplates)

	var candidates []domain.Offer
	for _, flight := range flights {
		for _, tmpl := range templates {
			o, ok, err := g.buildOffer(ctx, principalID, search, flight, tmpl, byType, ruleSet, now)
			if err != nil {
				return nil, err
			}
			if ok {
				candidates = append(candidates, o)
			}
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	scoreCandidates(candidates, ruleSet.Generation, g.ranker)

	sort.SliceStable(candidates, func(i, j int) bool {
		return tieBreak(candidates[i], candidates[j], templateByID(templates))
	})

	maxOffers := ruleSet.Generation.MaxOffers
	if maxOffers <= 0 {
		maxOffers = 5
	}
	if len(candidates) > maxOffers {
		candidates = candidates[:maxOffers]
	}

	expiryMinutes := ruleSet.Generation.ExpiryMinutes
	if expiryMinutes <= 0 {
		expiryMinutes = 15
	}
	for i := range candidates {
		candidates[i].ExpiresAt = now.Add(time.Duration(expiryMinutes) * time.Minute)
	}
	return candidates, nil
}

// buildOffer implements step 3-4: attempt construction of one
// (flight, template) pair. Drops the template when a required slot has
// no matching product, per spec §4.4 step 3.
func (g *Generator) buildOffer(ctx context.Context, principalID string, search domain.SearchContext, flight domain.Flight, tmpl domain.BundleTemplate, byType map[domain.ProductType][]domain.Product, ruleSet *domain.RuleSet, now time.Time) (domain.Offer, bool, error) {
	daysUntilDeparture := int(time.Unix(flight.ScheduledDeparture, 0).Sub(now).Hours() / 24)

	avail, err := g.avail.Available(ctx, flight.FlightID)
	if err != nil {
		return domain.Offer{}, false, err
	}
	eff := flight.Capacity
	utilization := 0.0
	capacityIsZero := eff <= 0
	if !capacityIsZero {
		utilization = 1 - float64(avail)/float64(eff)
		utilization = math.Max(0, math.Min(1, utilization))
	}

	var items []domain.OfferItem

	flightPrice, err := g.pricer.Price(domain.Product{AirlineID: flight.AirlineID, Type: domain.ProductTypeFlight, BasePrice: flight.BasePrice}, pricing.Context{
		Timestamp: now, DaysUntilDeparture: daysUntilDeparture, Utilization: utilization, CapacityIsZero: capacityIsZero, IsBundled: false, RuleSet: ruleSet,
	})
	if err != nil {
		return domain.Offer{}, false, err
	}
	items = append(items, domain.OfferItem{
		ProductID: flight.FlightID, ProductType: domain.ProductTypeFlight, UnitPrice: flightPrice, Quantity: paxOrOne(search), FlightID: flight.FlightID,
	})

	for _, slot := range tmpl.Slots {
		if slot.ProductType == domain.ProductTypeFlight {
			continue
		}
		candidates := byType[slot.ProductType]
		if len(candidates) == 0 {
			if slot.Required {
				return domain.Offer{}, false, nil
			}
			continue
		}
		product := candidates[0]
		price, err := g.pricer.Price(product, pricing.Context{
			Timestamp: now, DaysUntilDeparture: daysUntilDeparture, Utilization: utilization, CapacityIsZero: capacityIsZero, IsBundled: true, RuleSet: ruleSet,
		})
		if err != nil {
			return domain.Offer{}, false, err
		}
		if tmpl.DiscountPercentage > 0 {
			price = domain.Money(math.RoundToEven(float64(price) * (1 - tmpl.DiscountPercentage)))
		}
		items = append(items, domain.OfferItem{
			ProductID: product.ProductID, ProductType: product.Type, UnitPrice: price, Quantity: paxOrOne(search),
		})
	}

	o := domain.Offer{
		OfferID:       uuid.NewString(),
		AirlineID:     flight.AirlineID,
		PrincipalID:   principalID,
		TemplateID:    tmpl.TemplateID,
		SearchContext: search,
		Items:         items,
		Status:        domain.OfferStatusActive,
		CreatedAt:     now,
	}
	o.Recompute()
	return o, true, nil
}

// scoreCandidates applies step 5: margin_norm is min-max normalized
// across the whole candidate set, so it is computed after enumeration,
// not inside buildOffer.
func scoreCandidates(candidates []domain.Offer, weights domain.GenerationRule, rank RankingFunc) {
	if weights.ConvertWeight == 0 && weights.MarginWeight == 0 {
		weights.ConvertWeight, weights.MarginWeight = 0.6, 0.4
	}
	margins := make([]float64, len(candidates))
	minMargin, maxMargin := math.Inf(1), math.Inf(-1)
	for i, o := range candidates {
		margins[i] = float64(o.Total)
		minMargin = math.Min(minMargin, margins[i])
		maxMargin = math.Max(maxMargin, margins[i])
	}
	for i := range candidates {
		norm := 0.5
		if maxMargin > minMargin {
			norm = (margins[i] - minMargin) / (maxMargin - minMargin)
		}
		candidates[i].RankScore = rank(candidates[i], norm, weights)
	}
}

// tieBreak implements spec §4.4's tie-break chain: higher score, then
// lower total price, then higher template priority, then stable
// insertion order (guaranteed by sort.SliceStable's fallback to the
// original ordering when this comparator returns false for both
// directions).
func tieBreak(a, b domain.Offer, templatePriority map[string]int) bool {
	if a.RankScore != b.RankScore {
		return a.RankScore > b.RankScore
	}
	if a.Total != b.Total {
		return a.Total < b.Total
	}
	if pa, pb := templatePriority[a.TemplateID], templatePriority[b.TemplateID]; pa != pb {
		return pa > pb
	}
	return false
}

func templateByID(templates []domain.BundleTemplate) map[string]int {
	m := make(map[string]int, len(templates))
	for _, t := range templates {
		m[t.TemplateID] = t.Priority
	}
	return m
}

func sortedTemplates(templates []domain.BundleTemplate) []domain.BundleTemplate {
	out := make([]domain.BundleTemplate, len(templates))
	copy(out, templates)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

func productsByType(products []domain.Product) map[domain.ProductType][]domain.Product {
	m := make(map[domain.ProductType][]domain.Product)
	for _, p := range products {
		m[p.Type] = append(m[p.Type], p)
	}
	return m
}

// parseDepartureWindow turns a "YYYY-MM-DD" departure day into a UTC
// unix-second [start, end) window.
func parseDepartureWindow(day string) (int64, int64, error) {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return 0, 0, err
	}
	start := t.UTC().Unix()
	return start, start + 24*3600, nil
}

func paxOrOne(s domain.SearchContext) int {
	if s.Passengers <= 0 {
		return 1
	}
	return s.Passengers
}

type airlineCtxKey struct{}

// WithAirlineID attaches the request's airline scope to ctx; transport
// handlers set this before calling Generate.
func WithAirlineID(ctx context.Context, airlineID string) context.Context {
	return context.WithValue(ctx, airlineCtxKey{}, airlineID)
}

func currentAirlineID(ctx context.Context) string {
	if v, ok := ctx.Value(airlineCtxKey{}).(string); ok {
		return v
	}
	return ""
}
