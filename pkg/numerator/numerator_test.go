package numerator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "tillpoint/internal/core/numerator"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates sys_sequences with one counter per key.
type mockQuerier struct {
	mu     sync.Mutex
	values map[string]int64
	calls  int
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{values: make(map[string]int64)}
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	key := args[0].(string)
	var increment int64 = 1
	if len(args) == 2 {
		if v, ok := args[1].(int64); ok {
			increment = v
		}
	}
	m.values[key] += increment
	return &mockRow{val: m.values[key]}
}

func TestGetNextNumber_Strict(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	ctx := context.Background()
	period := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cfg := corenumerator.DefaultConfig("S")

	num, err := svc.GetNextNumber(ctx, cfg, nil, period)
	require.NoError(t, err)
	assert.Equal(t, "S-2026-00001", num)

	num, err = svc.GetNextNumber(ctx, cfg, nil, period)
	require.NoError(t, err)
	assert.Equal(t, "S-2026-00002", num)
}

func TestGetNextNumber_ScopesAreIndependent(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	ctx := context.Background()
	now := time.Now()

	a, err := svc.GetNextNumber(ctx, corenumerator.ScopedConfig("B", "product-a"), nil, now)
	require.NoError(t, err)
	b, err := svc.GetNextNumber(ctx, corenumerator.ScopedConfig("B", "product-b"), nil, now)
	require.NoError(t, err)
	a2, err := svc.GetNextNumber(ctx, corenumerator.ScopedConfig("B", "product-a"), nil, now)
	require.NoError(t, err)

	assert.Equal(t, "B-00001", a)
	assert.Equal(t, "B-00001", b)
	assert.Equal(t, "B-00002", a2)
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	ctx := context.Background()
	period := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cfg := corenumerator.DefaultConfig("S")
	opts := &corenumerator.Options{Strategy: corenumerator.StrategyCached, RangeSize: 10}

	num, err := svc.GetNextNumber(ctx, cfg, opts, period)
	require.NoError(t, err)
	assert.Equal(t, "S-2026-00001", num)
	assert.Equal(t, 1, q.calls)

	num, err = svc.GetNextNumber(ctx, cfg, opts, period)
	require.NoError(t, err)
	assert.Equal(t, "S-2026-00002", num)
	assert.Equal(t, 1, q.calls, "second number must come from the cached range")

	for i := 0; i < 8; i++ {
		_, err = svc.GetNextNumber(ctx, cfg, opts, period)
		require.NoError(t, err)
	}

	num, err = svc.GetNextNumber(ctx, cfg, opts, period)
	require.NoError(t, err)
	assert.Equal(t, "S-2026-00011", num)
	assert.Equal(t, 2, q.calls)
}

func TestGetNextNumber_QuerierFuncResolvedPerCall(t *testing.T) {
	first, second := newMockQuerier(), newMockQuerier()
	use := first
	svc := NewWithQuerier(func(context.Context) Querier { return use })
	ctx := context.Background()
	cfg := corenumerator.ScopedConfig("B", "p")

	_, err := svc.GetNextNumber(ctx, cfg, nil, time.Now())
	require.NoError(t, err)
	use = second
	_, err = svc.GetNextNumber(ctx, cfg, nil, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, int64(42), ParseNumber("S-2026-00042"))
	assert.Equal(t, int64(7), ParseNumber("B-00007"))
	assert.Equal(t, int64(-1), ParseNumber("garbage"))
	assert.Equal(t, int64(-1), ParseNumber("B-"))
}
