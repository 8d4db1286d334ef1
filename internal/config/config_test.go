package config

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Source.Mode)
	assert.Equal(t, "./data", cfg.Source.LocalPath)
	assert.Equal(t, "imdb.title.basics.csv.gz", cfg.Inputs.Basics)
	assert.Equal(t, "imdb.title.ratings.csv.gz", cfg.Inputs.Ratings)
	assert.Equal(t, "tn.movie_budgets.csv.gz", cfg.Inputs.Budgets)
	assert.Equal(t, "substring", cfg.Genres.Match)
	assert.Equal(t, "snappy", cfg.Output.ParquetCompression)
	assert.True(t, cfg.Output.WriteCSV)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "movie-roi.yaml")
	yamlDoc := `
source:
  mode: local
  local_path: /srv/imdb
genres:
  match: token
  top: 5
storage:
  prefix: analysis/
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("GENRE_TOP", "3")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/imdb", cfg.Source.LocalPath)
	assert.Equal(t, "token", cfg.Genres.Match)
	assert.Equal(t, 3, cfg.Genres.Top, "env overrides file")
	assert.Equal(t, "analysis/", cfg.Storage.Prefix)
	assert.Equal(t, "./output", cfg.Storage.LocalDir, "unset keys keep defaults")
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DATA_DIR=/from/dotenv\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("DATA_DIR") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/from/dotenv", cfg.Source.LocalPath)
}

func TestLoadBadFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_FILE", "does-not-exist.yaml")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadInvalidGenreTop(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("GENRE_TOP", "abc")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GENRE_TOP")
	assert.ErrorIs(t, err, strconv.ErrSyntax)
}

func TestLoadWriteCSV(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("WRITE_CSV", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Output.WriteCSV)

	t.Setenv("WRITE_CSV", "nope")
	_, err = Load()
	assert.ErrorContains(t, err, "WRITE_CSV")
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	bad := Defaults()
	bad.Source.Mode = "gcs"
	assert.Error(t, bad.Validate(), "gcs source without bucket")

	bad = Defaults()
	bad.Storage.Backend = "ftp"
	assert.Error(t, bad.Validate())

	bad = Defaults()
	bad.Genres.Top = -1
	assert.Error(t, bad.Validate())
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir in Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
