package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Default(t *testing.T) {
	items, err := Load("")
	require.NoError(t, err)
	require.Len(t, items, 6)

	assert.Equal(t, "p1", items[0].ID)
	assert.Equal(t, int64(4500), items[0].Price)
	assert.Equal(t, 10, items[0].ReorderThreshold)

	// p2 ships below its reorder point
	assert.True(t, items[1].NeedsReplenishment())
	assert.Equal(t, "Higiene Personal", items[5].Category)
}

func TestParse_Rejects(t *testing.T) {
	tests := map[string]string{
		"missing id":      "items:\n  - name: x\n    price: 1\n",
		"negative stock":  "items:\n  - id: a\n    stock: -1\n",
		"negative price":  "items:\n  - id: a\n    price: -5\n",
		"duplicate id":    "items:\n  - id: a\n  - id: a\n",
		"not yaml at all": "items: [",
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}
