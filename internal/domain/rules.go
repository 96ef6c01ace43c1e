package domain

import "time"

type AdjustmentKind string

const (
	AdjustmentMultiplier AdjustmentKind = "MULTIPLIER"
	AdjustmentFixed      AdjustmentKind = "FIXED"
	AdjustmentFormula    AdjustmentKind = "FORMULA"
)

// Adjustment is one step of a PricingRule, applied in RuleSet priority
// order. Exactly one of Value/Expr is meaningful, depending on Kind.
type Adjustment struct {
	Kind  AdjustmentKind
	Value float64 // MULTIPLIER, FIXED
	Expr  string  // FORMULA: variables `utilization`, `days_until_departure`
}

// RuleCondition gates whether a PricingRule applies to a given context.
// An empty condition always matches.
type RuleCondition struct {
	ProductType   ProductType // "" matches any
	MinDaysToDep  *int
	MaxDaysToDep  *int
}

// PricingRule is an admin-authored per-(airline, product type) pricing
// adjustment, evaluated in ascending Priority order.
type PricingRule struct {
	RuleID         string
	AirlineID      string
	ProductType    ProductType
	Priority       int
	Condition      RuleCondition
	Adjustments    []Adjustment
	MinMultiplier  *float64
	MaxMultiplier  *float64
	IsActive       bool
	ValidFrom      time.Time
	ValidUntil     time.Time
}

func (r PricingRule) AppliesTo(productType ProductType, daysUntilDeparture int) bool {
	if r.Condition.ProductType != "" && r.Condition.ProductType != productType {
		return false
	}
	if r.Condition.MinDaysToDep != nil && daysUntilDeparture < *r.Condition.MinDaysToDep {
		return false
	}
	if r.Condition.MaxDaysToDep != nil && daysUntilDeparture > *r.Condition.MaxDaysToDep {
		return false
	}
	return true
}

// BundleSlot is one required or optional slot in a BundleTemplate.
type BundleSlot struct {
	ProductType ProductType
	Required    bool
}

// BundleTemplate is an admin-authored recipe for composing offers.
type BundleTemplate struct {
	TemplateID         string
	AirlineID          string
	Name               string
	Priority           int
	Slots              []BundleSlot
	DiscountPercentage float64 // applied to ancillaries only
	IsActive           bool
	ValidFrom          time.Time
	ValidUntil         time.Time
}

// GenerationRule tunes OfferGenerator scoring weights and limits.
type GenerationRule struct {
	AirlineID       string
	ConvertWeight   float64 // w_c, default 0.6
	MarginWeight    float64 // w_m, default 0.4
	MaxOffers       int     // default 5
	ExpiryMinutes   int     // default 15
}

// InventoryRule carries per-airline overbooking policy.
type InventoryRule struct {
	AirlineID          string
	OverbookingPercent float64
}

// RuleSet is the immutable, consistent bundle of all active rules for one
// airline as of the snapshot time. Readers capture it once per request.
type RuleSet struct {
	AirlineID        string
	SnapshotAt       time.Time
	PricingRules     []PricingRule
	BundleTemplates  []BundleTemplate
	Generation       GenerationRule
	Inventory        InventoryRule
}
