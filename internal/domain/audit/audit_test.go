package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	oldState := map[string]any{"cost": "80", "selling": "100", "mrp": "120", "gone": 1}
	newState := map[string]any{"cost": "80", "selling": "110", "mrp": "120", "added": true}

	changes := Diff(oldState, newState)

	assert.Len(t, changes, 3)
	assert.Equal(t, map[string]any{"old": "100", "new": "110"}, changes["selling"])
	assert.Equal(t, map[string]any{"old": nil, "new": true}, changes["added"])
	assert.Equal(t, map[string]any{"old": 1, "new": nil}, changes["gone"])
	assert.NotContains(t, changes, "cost")
}
