package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrincipal_Owns(t *testing.T) {
	p := Principal{ID: "user-1", Kind: PrincipalKindAuthenticated}
	assert.True(t, p.Owns("user-1"))
	assert.False(t, p.Owns("user-2"))

	guest := Principal{}
	assert.False(t, guest.Owns(""))
}
