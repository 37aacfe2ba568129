package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillpoint/internal/config"
	"tillpoint/internal/domain/catalog"
)

func TestOpenMemory(t *testing.T) {
	ctx := context.Background()
	rt, err := Open(ctx, config.Config{
		Storage:     config.StorageConfig{Driver: config.DriverMemory},
		Idempotency: config.IdempotencyConfig{Enabled: true, TTL: time.Hour},
	})
	require.NoError(t, err)
	defer rt.Close()

	assert.Nil(t, rt.Pool)
	assert.NoError(t, rt.Ready(ctx))
	require.NotNil(t, rt.Idempotency)

	p, err := rt.Services.Catalog.CreateProduct(ctx, catalog.CreateProductInput{
		Name:     "Tea 100g",
		Barcodes: []string{"8901234567890"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Tea 100g", p.Name)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.Config{Storage: config.StorageConfig{Driver: "sqlite"}})
	assert.ErrorContains(t, err, "unknown storage driver")
}
