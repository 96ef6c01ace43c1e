package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/altis-air/altis-retail-engine/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// OfferMirror writes a best-effort audit copy of an offer to Postgres.
// The cache (offer:{offer_id}, 15m TTL) is the offer's primary
// residence per spec §3; this mirror never gates the request (failures
// are logged, not returned), matching the teacher's fire-and-forget
// Kafka publish pattern in booking_service.go's publish().
type OfferMirror struct {
	db  *pgxpool.Pool
	log *zap.SugaredLogger
}

func NewOfferMirror(db *pgxpool.Pool, log *zap.SugaredLogger) *OfferMirror {
	return &OfferMirror{db: db, log: log}
}

func (m *OfferMirror) Write(ctx context.Context, offer domain.Offer) {
	itemsRaw, err := json.Marshal(offer.Items)
	if err != nil {
		m.log.Warnw("failed to marshal offer items for audit mirror", "offer_id", offer.OfferID, "err", err)
		return
	}
	_, err = m.db.Exec(ctx, `
		INSERT INTO offers (offer_id, airline_id, principal_id, total, status, items, rank_score, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (offer_id) DO UPDATE SET status=EXCLUDED.status`,
		offer.OfferID, offer.AirlineID, offer.PrincipalID, offer.Total, offer.Status, itemsRaw, offer.RankScore, offer.CreatedAt, offer.ExpiresAt)
	if err != nil {
		m.log.Warnw("offer audit mirror write failed", "offer_id", offer.OfferID, "err", err)
	}
}

func (m *OfferMirror) MarkExpired(ctx context.Context, offerIDs []string) {
	if len(offerIDs) == 0 {
		return
	}
	if _, err := m.db.Exec(ctx, `UPDATE offers SET status=$1 WHERE offer_id = ANY($2)`, domain.OfferStatusExpired, offerIDs); err != nil {
		m.log.Warnw("offer audit mirror expiry write failed", "err", err)
	}
}

// ListExpiredActive backs ExpiryWorker's informational offer sweep
// (spec §4.7 step 4) — mostly cosmetic, since the cache TTL has
// already evicted the offer's primary residence by the time this
// query can see it, but it keeps the audit mirror's status honest.
func (m *OfferMirror) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := m.db.Query(ctx, `SELECT offer_id FROM offers WHERE status=$1 AND expires_at <= $2 LIMIT $3`,
		domain.OfferStatusActive, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
