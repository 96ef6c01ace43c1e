package store

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewOfferMirror(t *testing.T) {
	pool := &pgxpool.Pool{}
	mirror := NewOfferMirror(pool, zap.NewNop().Sugar())
	assert.NotNil(t, mirror)
}
