package offer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/altis-air/altis-retail-engine/internal/apperr"
	"github.com/altis-air/altis-retail-engine/internal/cache"
	"github.com/altis-air/altis-retail-engine/internal/domain"
	"go.uber.org/zap"
)

// Mirror is the optional audit-mirror side of an OfferStore write,
// implemented by internal/store.OfferMirror. A nil Mirror disables it.
type Mirror interface {
	Write(ctx context.Context, offer domain.Offer)
	MarkExpired(ctx context.Context, offerIDs []string)
	ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// offerCache is the narrow slice of cache.Client the Store drives,
// carved out so AcceptCAS's branch handling (success / already-accepted
// / not-found) is testable against a hand-rolled mock instead of
// needing a live Redis for the CAS script's three outcomes.
type offerCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	CompareAndSetJSONField(ctx context.Context, key, field, expected, newValue string) (code int, value string, err error)
}

// Store is the primary residence for offers: a cache entry at
// offer:{offer_id} with a 15-minute TTL. The offers/backup mirror is
// best-effort and never gates a request.
type Store struct {
	cache  offerCache
	mirror Mirror
	ttl    time.Duration
	log    *zap.SugaredLogger
}

func NewStore(c *cache.Client, mirror Mirror, ttl time.Duration, log *zap.SugaredLogger) *Store {
	return &Store{cache: c, mirror: mirror, ttl: ttl, log: log}
}

func (s *Store) Save(ctx context.Context, o domain.Offer) error {
	data, err := json.Marshal(o)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "marshal offer", err)
	}
	if err := s.cache.Set(ctx, cache.OfferKey(o.OfferID), string(data), s.ttl); err != nil {
		return apperr.Wrap(apperr.KindTransient, "persist offer", err)
	}
	if s.mirror != nil {
		s.mirror.Write(ctx, o)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, offerID string) (*domain.Offer, error) {
	raw, ok, err := s.cache.Get(ctx, cache.OfferKey(offerID))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "read offer", err)
	}
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "offer not found or expired")
	}
	var o domain.Offer
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "unmarshal offer", err)
	}
	return &o, nil
}

// AcceptCAS transitions an offer ACTIVE -> ACCEPTED, failing with
// ErrOfferAlreadyAccepted on any other current status, or a not-found
// error once the cache TTL has lapsed the key. The transition itself is
// a single atomic Lua script (cache.Client.CompareAndSetJSONField) so
// two concurrent AcceptCAS calls for the same offer_id can never both
// observe ACTIVE and both write ACCEPTED — the loser sees its own
// current (already-ACCEPTED) copy of the offer and fails cleanly,
// satisfying "at most one order may reference a given offer_id".
func (s *Store) AcceptCAS(ctx context.Context, offerID string, now time.Time) (*domain.Offer, error) {
	code, raw, err := s.cache.CompareAndSetJSONField(ctx, cache.OfferKey(offerID),
		"Status", string(domain.OfferStatusActive), string(domain.OfferStatusAccepted))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "accept offer", err)
	}
	if code == 0 {
		return nil, apperr.New(apperr.KindNotFound, "offer not found or expired")
	}
	if code == -1 {
		return nil, apperr.Wrap(apperr.KindInvalidTransition, "offer already accepted or terminal", apperr.ErrOfferAlreadyAccepted)
	}

	var o domain.Offer
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "unmarshal offer", err)
	}
	if s.mirror != nil {
		s.mirror.Write(ctx, o)
	}
	return &o, nil
}

// MarkExpired is used by ExpiryWorker for the informational sweep over
// offers past expires_at (the cache TTL already makes them unreadable;
// this only updates the audit mirror).
func (s *Store) MarkExpired(ctx context.Context, offerIDs []string) {
	if s.mirror != nil {
		s.mirror.MarkExpired(ctx, offerIDs)
	}
}

// ListExpiredActive delegates to the audit mirror, or returns nothing
// if no mirror is configured (the cache TTL is then the only expiry
// mechanism, which is still correct per spec §4.7 — this pass is
// informational).
func (s *Store) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]string, error) {
	if s.mirror == nil {
		return nil, nil
	}
	return s.mirror.ListExpiredActive(ctx, now, limit)
}
