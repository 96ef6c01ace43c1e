// Package rules implements the RuleStore of spec §4.3: a read-through
// cache over the admin-authored rule tables, exposed as an immutable,
// atomically-swapped snapshot per request (spec §9's prescription for
// the engine's one piece of global mutable state).
package rules

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/altis-air/altis-retail-engine/internal/domain"
	"go.uber.org/zap"
)

// AdminReader loads the current admin-authored rule rows for an airline.
// Implemented by internal/store against Postgres.
type AdminReader interface {
	LoadPricingRules(ctx context.Context, airlineID string) ([]domain.PricingRule, error)
	LoadBundleTemplates(ctx context.Context, airlineID string) ([]domain.BundleTemplate, error)
	LoadGenerationRule(ctx context.Context, airlineID string) (domain.GenerationRule, error)
	LoadInventoryRule(ctx context.Context, airlineID string) (domain.InventoryRule, error)
}

type entry struct {
	snapshot atomic.Pointer[domain.RuleSet]
	loadedAt time.Time
}

type Store struct {
	reader AdminReader
	ttl    time.Duration
	log    *zap.SugaredLogger

	mu      sync.Mutex
	entries map[string]*entry
}

func New(reader AdminReader, ttl time.Duration, log *zap.SugaredLogger) *Store {
	return &Store{
		reader:  reader,
		ttl:     ttl,
		log:     log,
		entries: make(map[string]*entry),
	}
}

// Snapshot returns a consistent, immutable RuleSet for airlineID,
// refreshing from the AdminReader if the cached copy is older than ttl
// or has been explicitly invalidated. Readers should capture the
// snapshot once at request entry and use it throughout (per-request
// consistency, spec §9).
func (s *Store) Snapshot(ctx context.Context, airlineID string) (*domain.RuleSet, error) {
	e := s.entryFor(airlineID)
	if cached := e.snapshot.Load(); cached != nil && time.Since(e.loadedAt) < s.ttl {
		return cached, nil
	}
	return s.refresh(ctx, airlineID, e)
}

// Invalidate forces the next Snapshot call for airlineID to reload from
// the AdminReader. Nothing in this repository calls it outside tests, and
// no consumer of the rules.invalidated topic is wired.
func (s *Store) Invalidate(airlineID string) {
	e := s.entryFor(airlineID)
	e.loadedAt = time.Time{}
}

func (s *Store) entryFor(airlineID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[airlineID]
	if !ok {
		e = &entry{}
		s.entries[airlineID] = e
	}
	return e
}

func (s *Store) refresh(ctx context.Context, airlineID string, e *entry) (*domain.RuleSet, error) {
	now := time.Now().UTC()

	pricingRules, err := s.reader.LoadPricingRules(ctx, airlineID)
	if err != nil {
		return nil, err
	}
	templates, err := s.reader.LoadBundleTemplates(ctx, airlineID)
	if err != nil {
		return nil, err
	}
	generation, err := s.reader.LoadGenerationRule(ctx, airlineID)
	if err != nil {
		return nil, err
	}
	inventoryRule, err := s.reader.LoadInventoryRule(ctx, airlineID)
	if err != nil {
		return nil, err
	}

	rs := &domain.RuleSet{
		AirlineID:       airlineID,
		SnapshotAt:      now,
		PricingRules:    filterActive(pricingRules, now),
		BundleTemplates: filterActiveTemplates(templates, now),
		Generation:      generation,
		Inventory:       inventoryRule,
	}

	e.snapshot.Store(rs)
	e.loadedAt = now
	s.log.Debugw("rule snapshot refreshed", "airline_id", airlineID, "pricing_rules", len(rs.PricingRules), "bundle_templates", len(rs.BundleTemplates))
	return rs, nil
}

// filterActive applies "is_active AND now in [valid_from, valid_until]"
// at snapshot time, per spec §4.3.
func filterActive(rules []domain.PricingRule, now time.Time) []domain.PricingRule {
	out := make([]domain.PricingRule, 0, len(rules))
	for _, r := range rules {
		if !r.IsActive {
			continue
		}
		if !r.ValidFrom.IsZero() && now.Before(r.ValidFrom) {
			continue
		}
		if !r.ValidUntil.IsZero() && now.After(r.ValidUntil) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func filterActiveTemplates(templates []domain.BundleTemplate, now time.Time) []domain.BundleTemplate {
	out := make([]domain.BundleTemplate, 0, len(templates))
	for _, t := range templates {
		if !t.IsActive {
			continue
		}
		if !t.ValidFrom.IsZero() && now.Before(t.ValidFrom) {
			continue
		}
		if !t.ValidUntil.IsZero() && now.After(t.ValidUntil) {
			continue
		}
		out = append(out, t)
	}
	return out
}
