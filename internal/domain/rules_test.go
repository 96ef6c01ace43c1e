package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPricingRule_AppliesTo_ProductTypeGate(t *testing.T) {
	r := PricingRule{Condition: RuleCondition{ProductType: ProductTypeFlight}}
	assert.True(t, r.AppliesTo(ProductTypeFlight, 10))
	assert.False(t, r.AppliesTo(ProductTypeMeal, 10))
}

func TestPricingRule_AppliesTo_EmptyConditionMatchesAny(t *testing.T) {
	r := PricingRule{}
	assert.True(t, r.AppliesTo(ProductTypeFlight, 10))
	assert.True(t, r.AppliesTo(ProductTypeMeal, 0))
}

func TestPricingRule_AppliesTo_DaysWindow(t *testing.T) {
	minDays, maxDays := 5, 30
	r := PricingRule{Condition: RuleCondition{MinDaysToDep: &minDays, MaxDaysToDep: &maxDays}}

	assert.False(t, r.AppliesTo(ProductTypeFlight, 4))
	assert.True(t, r.AppliesTo(ProductTypeFlight, 5))
	assert.True(t, r.AppliesTo(ProductTypeFlight, 30))
	assert.False(t, r.AppliesTo(ProductTypeFlight, 31))
}
