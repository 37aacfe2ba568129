package postgres

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLog_PackThreshold(t *testing.T) {
	log, err := NewAuditLog(nil, 64)
	require.NoError(t, err)

	small := []byte(`{"mrp":"10"}`)
	changes, compressed, algo := log.pack(small)
	assert.Equal(t, CompressionNone, algo)
	assert.Nil(t, compressed)
	assert.JSONEq(t, string(small), string(changes))

	large, err := json.Marshal(map[string]string{"note": strings.Repeat("x", 500)})
	require.NoError(t, err)
	changes, compressed, algo = log.pack(large)
	assert.Equal(t, CompressionZstd, algo)
	assert.Nil(t, changes)
	assert.Less(t, len(compressed), len(large))

	restored, err := log.unpack(auditRow{ChangesCompressed: compressed, CompressionAlgo: algo})
	require.NoError(t, err)
	assert.JSONEq(t, string(large), string(restored))
}

func TestAuditLog_DefaultThreshold(t *testing.T) {
	log, err := NewAuditLog(nil, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultAuditCompressThreshold, log.compressThreshold)
}
