package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CNKIHunter/internal/platform/cnki"
)

func TestWriteExampleConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteExampleConfig(path))

	cfg, used, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, *cnki.DefaultConfig(), cfg.CNKI)
	assert.Equal(t, 3*time.Second, cfg.Download.Interval)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
cnki:
  max_pages: 3
  nav_timeout: 5s
  charset: big5
zotero:
  user_id: "42"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("CNKI_ZOTERO_API_KEY", "from-env")

	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.CNKI.MaxPages)
	assert.Equal(t, 5*time.Second, cfg.CNKI.NavTimeout)
	assert.Equal(t, "big5", cfg.CNKI.Charset)
	assert.Equal(t, "下頁", cfg.CNKI.NextLabel, "未设置的键保持默认值")
	assert.Equal(t, "42", cfg.Zotero.UserID)
	assert.Equal(t, "from-env", cfg.Zotero.APIKey)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "页数超过上限", content: "cnki:\n  max_pages: 11\n"},
		{name: "yaml 语法错误", content: "cnki: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, _, err := Load(path)
			assert.Error(t, err)
		})
	}
}
