package land

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yieldland/production-core/internal/domain"
)

func writeCatalogFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultCatalog(t *testing.T) {
	catalog := Default()
	assert.Len(t, catalog.Kinds(), 4)

	mine, ok := catalog.Profile(domain.LandMine)
	require.True(t, ok)
	assert.Equal(t, domain.ResourceIron, mine.Produces)
	assert.Equal(t, 1.0, mine.OutputMultiplier)
	assert.Equal(t, 2.0, mine.BaseGrainRate)
	assert.Equal(t, 0.1, mine.TaxRate)

	farm, ok := catalog.Profile(domain.LandFarm)
	require.True(t, ok)
	assert.Equal(t, domain.ResourceGrain, farm.Produces)
	assert.Equal(t, 0.05, farm.TaxRate)

	_, ok = catalog.Profile(domain.LandKind("swamp"))
	assert.False(t, ok)
}

func TestLoadCatalog(t *testing.T) {
	path := writeCatalogFile(t, `
version: "1.0"
lands:
  - kind: forest
    produces: wood
    output_multiplier: 1.5
    base_grain_rate: 1.0
    tax_rate: 0.2
`)

	catalog, err := Load(path)
	require.NoError(t, err)
	require.Len(t, catalog.Kinds(), 1)

	forest, ok := catalog.Profile(domain.LandForest)
	require.True(t, ok)
	assert.Equal(t, 1.5, forest.OutputMultiplier)
	assert.Equal(t, 0.2, forest.TaxRate)
}

func TestLoadCatalogRejectsInvalidEntries(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"unknown kind", "lands:\n  - kind: swamp\n    produces: wood\n    output_multiplier: 1\n    base_grain_rate: 1\n    tax_rate: 0.1\n"},
		{"unknown resource", "lands:\n  - kind: mine\n    produces: gold\n    output_multiplier: 1\n    base_grain_rate: 1\n    tax_rate: 0.1\n"},
		{"zero multiplier", "lands:\n  - kind: mine\n    produces: iron\n    output_multiplier: 0\n    base_grain_rate: 1\n    tax_rate: 0.1\n"},
		{"tax over one", "lands:\n  - kind: mine\n    produces: iron\n    output_multiplier: 1\n    base_grain_rate: 1\n    tax_rate: 1.5\n"},
		{"duplicate kind", "lands:\n  - kind: mine\n    produces: iron\n    output_multiplier: 1\n    base_grain_rate: 1\n    tax_rate: 0.1\n  - kind: mine\n    produces: iron\n    output_multiplier: 2\n    base_grain_rate: 1\n    tax_rate: 0.1\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeCatalogFile(t, tc.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	catalog, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Len(t, catalog.Kinds(), 4)
}

func TestShippedCatalogMatchesDefaults(t *testing.T) {
	catalog, err := Load(filepath.Join("..", "..", "configs", "lands", "catalog.yaml"))
	require.NoError(t, err)

	defaults := Default()
	require.Len(t, catalog.Kinds(), len(defaults.Kinds()))
	for _, kind := range defaults.Kinds() {
		want, _ := defaults.Profile(kind)
		got, ok := catalog.Profile(kind)
		require.True(t, ok, "kind %s missing from shipped catalog", kind)
		assert.Equal(t, want, got)
	}
}
