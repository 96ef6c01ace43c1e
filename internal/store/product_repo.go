package store

import (
	"context"
	"encoding/json"

	"github.com/altis-air/altis-retail-engine/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductRepository struct {
	db *pgxpool.Pool
}

func NewProductRepository(db *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) ListByAirline(ctx context.Context, airlineID string) ([]domain.Product, error) {
	rows, err := r.db.Query(ctx, `SELECT product_id, airline_id, type, code, base_price, metadata FROM products WHERE airline_id=$1`, airlineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		var metaRaw []byte
		if err := rows.Scan(&p.ProductID, &p.AirlineID, &p.Type, &p.Code, &p.BasePrice, &metaRaw); err != nil {
			return nil, err
		}
		if len(metaRaw) > 0 {
			if err := json.Unmarshal(metaRaw, &p.Metadata); err != nil {
				return nil, err
			}
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
