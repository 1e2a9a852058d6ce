package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 9998, cfg.DBMaxSizeGB)
	assert.Equal(t, 16, cfg.Vector.M)
	assert.Equal(t, 128, cfg.Vector.EfConstruction)
	assert.Equal(t, 768, cfg.Vector.EfSearch)
	assert.False(t, cfg.BM25)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.hx.yaml")
	contents := []byte(`
db_max_size_gb: 50
bm25: true
schema: ./mydb/schema.hx
vector:
  m: 24
  ef_construction: 200
  ef_search: 900
`)
	require.NoError(t, os.WriteFile(path, contents, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.DBMaxSizeGB)
	assert.True(t, cfg.BM25)
	assert.Equal(t, "./mydb/schema.hx", cfg.Schema)
	assert.Equal(t, 24, cfg.Vector.M)
	assert.Equal(t, 200, cfg.Vector.EfConstruction)
	assert.Equal(t, 900, cfg.Vector.EfSearch)
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.hx.json")
	contents := []byte(`{"db_max_size_gb": 10, "secondary_indices": ["User.email", "Post.slug"]}`)
	require.NoError(t, os.WriteFile(path, contents, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.DBMaxSizeGB)
	assert.Equal(t, []string{"User.email", "Post.slug"}, cfg.SecondaryIndices)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HELIXDB_DB_MAX_SIZE_GB", "100")
	t.Setenv("HELIXDB_BM25", "true")
	t.Setenv("HELIXDB_SECONDARY_INDICES", "User.email, Post.slug")

	cfg := LoadFromEnv()
	assert.Equal(t, 100, cfg.DBMaxSizeGB)
	assert.True(t, cfg.BM25)
	assert.Equal(t, []string{"User.email", "Post.slug"}, cfg.SecondaryIndices)
}

func TestValidateRejectsBadVectorTuning(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Vector.M = 0
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptySchema(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Schema = ""
	require.Error(t, cfg.Validate())
}
