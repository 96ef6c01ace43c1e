package offer

import (
	"context"
	"time"

	"github.com/altis-air/altis-retail-engine/internal/domain"
	"go.uber.org/zap"
)

// EventPublisher is the slice of events.Bus the search path drives.
type EventPublisher interface {
	Publish(ctx context.Context, eventType domain.EventType, aggregateID string, payload map[string]any) error
}

// SearchService composes Generator and Store into the single
// generate-then-persist call the transport layer's searchOffers
// handler needs: OfferGenerator enumerates and scores, OfferStore
// persists each result with its TTL, offer.generated is emitted per
// offer.
type SearchService struct {
	generator *Generator
	store     *Store
	events    EventPublisher
	log       *zap.SugaredLogger
}

func NewSearchService(generator *Generator, store *Store, events EventPublisher, log *zap.SugaredLogger) *SearchService {
	return &SearchService{generator: generator, store: store, events: events, log: log}
}

func (s *SearchService) Generate(ctx context.Context, principalID string, search domain.SearchContext, now time.Time) ([]domain.Offer, error) {
	offers, err := s.generator.Generate(ctx, principalID, search, now)
	if err != nil {
		return nil, err
	}
	for _, o := range offers {
		if err := s.store.Save(ctx, o); err != nil {
			s.log.Warnw("failed to persist generated offer", "offer_id", o.OfferID, "err", err)
			continue
		}
		if pubErr := s.events.Publish(ctx, domain.EventOfferGenerated, o.OfferID, map[string]any{"total": int64(o.Total)}); pubErr != nil {
			s.log.Warnw("failed to publish offer.generated", "offer_id", o.OfferID, "err", pubErr)
		}
	}
	return offers, nil
}
