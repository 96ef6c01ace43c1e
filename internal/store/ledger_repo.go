package store

import (
	"context"

	"github.com/altis-air/altis-retail-engine/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LedgerRepository struct {
	db *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Append(ctx context.Context, entry domain.LedgerEntry) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO ledger (entry_id, order_id, item_id, kind, amount, reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6, now())`,
		entry.EntryID, entry.OrderID, entry.ItemID, entry.Kind, entry.Amount, entry.Reason)
	return err
}
