package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "postbuilder.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoad_AppliesDefaults(t *testing.T) {
	p := writeConfig(t, "permalink: pretty\n")
	dir := filepath.Dir(p)

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, DefaultContentDir), cfg.ContentDir)
	assert.Equal(t, filepath.Join(dir, DefaultLayoutsDir), cfg.LayoutsDir)
	assert.Equal(t, filepath.Join(dir, DefaultHistoryPath), cfg.History.Path)
	assert.Equal(t, "/:categories/:year/:month/:day/:slug/", cfg.CompiledPermalink().Pattern())
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Equal(t, 24*time.Hour, cfg.Tolerance())
	assert.Equal(t, 300*time.Millisecond, cfg.Debounce())
	assert.Equal(t, "default", cfg.DefaultLayout)
	assert.Equal(t, []string{".md", ".markdown"}, cfg.Extensions)
	assert.Equal(t, []string{".html"}, cfg.LayoutExtensions)
	assert.Positive(t, cfg.Workers)
}

func TestLoad_ExplicitValues(t *testing.T) {
	abs := t.TempDir()
	p := writeConfig(t, `content_dir: posts
layouts_dir: `+abs+`
timezone: Europe/Oslo
date_tolerance: 2h
workers: 3
exclude: ["drafts"]
history:
  disable: true
watch:
  debounce: 1s
logging:
  level: DEBUG
  format: json
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(filepath.Dir(p), "posts"), cfg.ContentDir)
	assert.Equal(t, abs, cfg.LayoutsDir)
	assert.Equal(t, "Europe/Oslo", cfg.Location().String())
	assert.Equal(t, 2*time.Hour, cfg.Tolerance())
	assert.Equal(t, time.Second, cfg.Debounce())
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, []string{"drafts"}, cfg.Exclude)
	assert.Empty(t, cfg.History.Path)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("POSTBUILDER_TEST_TZ", "Asia/Tokyo")
	p := writeConfig(t, "timezone: ${POSTBUILDER_TEST_TZ}\n")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", cfg.Location().String())
}

func TestLoad_ReadsDotEnvNextToConfig(t *testing.T) {
	const key = "POSTBUILDER_TEST_DOTENV_DIR"
	require.NoError(t, os.Unsetenv(key))
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	p := writeConfig(t, "content_dir: ${"+key+"}\n")
	dir := filepath.Dir(p)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(key+"=from-env\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte(key+"=from-local\n"), 0o600))

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "from-local"), cfg.ContentDir)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"unknown key", "permalinks: date\n", ""},
		{"bad timezone", "timezone: Mars/Olympus\n", "timezone"},
		{"bad permalink", "permalink: /:year/:nope\n", "permalink"},
		{"bad tolerance", "date_tolerance: soon\n", "date_tolerance"},
		{"negative tolerance", "date_tolerance: -1h\n", "date_tolerance"},
		{"bad debounce", "watch:\n  debounce: later\n", "watch.debounce"},
		{"bad log level", "logging:\n  level: loud\n", "logging.level"},
		{"bad log format", "logging:\n  format: xml\n", "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)

			ce, ok := ferrors.AsClassified(err)
			require.True(t, ok)
			assert.Equal(t, ferrors.CategoryConfig, ce.Category())
			if tt.field != "" {
				field, _ := ce.Context().GetString("field")
				assert.Equal(t, tt.field, field)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	ce, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, "configuration file not found", ce.Message())
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "/:year/:month/:day/:slug", cfg.CompiledPermalink().Pattern())
}

func TestDefault(t *testing.T) {
	cfg, err := Default("site")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("site", DefaultContentDir), cfg.ContentDir)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestInit(t *testing.T) {
	p := filepath.Join(t.TempDir(), "postbuilder.yaml")
	require.NoError(t, Init(p, false))

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "<!--more-->", cfg.ExcerptSeparator)
	assert.Equal(t, "/:categories/:year/:month/:day/:slug", cfg.CompiledPermalink().Pattern())

	err = Init(p, false)
	require.Error(t, err)
	ce, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, ferrors.CategoryValidation, ce.Category())

	require.NoError(t, Init(p, true))
}
