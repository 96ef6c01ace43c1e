package store

import (
	"context"
	"encoding/json"

	"github.com/altis-air/altis-retail-engine/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RuleRepository implements rules.AdminReader against the admin-authored
// rule tables. Adjustments and conditions are stored as JSON columns
// since their shape varies per rule (spec §4.3's "opaque typed record"
// pattern already used for Product.Metadata).
type RuleRepository struct {
	db *pgxpool.Pool
}

func NewRuleRepository(db *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) LoadPricingRules(ctx context.Context, airlineID string) ([]domain.PricingRule, error) {
	rows, err := r.db.Query(ctx, `
		SELECT rule_id, airline_id, product_type, priority, condition, adjustments,
		       min_multiplier, max_multiplier, is_active, valid_from, valid_until
		FROM pricing_rules WHERE airline_id=$1`, airlineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PricingRule
	for rows.Next() {
		var pr domain.PricingRule
		var conditionRaw, adjustmentsRaw []byte
		if err := rows.Scan(&pr.RuleID, &pr.AirlineID, &pr.ProductType, &pr.Priority, &conditionRaw, &adjustmentsRaw,
			&pr.MinMultiplier, &pr.MaxMultiplier, &pr.IsActive, &pr.ValidFrom, &pr.ValidUntil); err != nil {
			return nil, err
		}
		if len(conditionRaw) > 0 {
			if err := json.Unmarshal(conditionRaw, &pr.Condition); err != nil {
				return nil, err
			}
		}
		if len(adjustmentsRaw) > 0 {
			if err := json.Unmarshal(adjustmentsRaw, &pr.Adjustments); err != nil {
				return nil, err
			}
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (r *RuleRepository) LoadBundleTemplates(ctx context.Context, airlineID string) ([]domain.BundleTemplate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT template_id, airline_id, name, priority, slots, discount_percentage, is_active, valid_from, valid_until
		FROM bundle_templates WHERE airline_id=$1`, airlineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BundleTemplate
	for rows.Next() {
		var bt domain.BundleTemplate
		var slotsRaw []byte
		if err := rows.Scan(&bt.TemplateID, &bt.AirlineID, &bt.Name, &bt.Priority, &slotsRaw,
			&bt.DiscountPercentage, &bt.IsActive, &bt.ValidFrom, &bt.ValidUntil); err != nil {
			return nil, err
		}
		if len(slotsRaw) > 0 {
			if err := json.Unmarshal(slotsRaw, &bt.Slots); err != nil {
				return nil, err
			}
		}
		out = append(out, bt)
	}
	return out, rows.Err()
}

func (r *RuleRepository) LoadGenerationRule(ctx context.Context, airlineID string) (domain.GenerationRule, error) {
	row := r.db.QueryRow(ctx, `SELECT airline_id, convert_weight, margin_weight, max_offers, expiry_minutes FROM generation_rules WHERE airline_id=$1`, airlineID)
	var gr domain.GenerationRule
	if err := row.Scan(&gr.AirlineID, &gr.ConvertWeight, &gr.MarginWeight, &gr.MaxOffers, &gr.ExpiryMinutes); err != nil {
		return domain.GenerationRule{
			AirlineID:     airlineID,
			ConvertWeight: 0.6,
			MarginWeight:  0.4,
			MaxOffers:     5,
			ExpiryMinutes: 15,
		}, nil
	}
	return gr, nil
}

func (r *RuleRepository) LoadInventoryRule(ctx context.Context, airlineID string) (domain.InventoryRule, error) {
	row := r.db.QueryRow(ctx, `SELECT airline_id, overbooking_percent FROM inventory_rules WHERE airline_id=$1`, airlineID)
	var ir domain.InventoryRule
	if err := row.Scan(&ir.AirlineID, &ir.OverbookingPercent); err != nil {
		return domain.InventoryRule{AirlineID: airlineID, OverbookingPercent: 0}, nil
	}
	return ir, nil
}
