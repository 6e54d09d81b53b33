package bibtex

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CNKIHunter/internal/bibliography"
	"CNKIHunter/internal/models"
)

func TestWriteEntries(t *testing.T) {
	url := "http://kns.cnki.net/KXReader/Detail?filename=A"
	entries := []bibliography.Entry{
		{ID: "abc", Kind: bibliography.Article, Author: "謝啟陽", Title: "論{墨子}", Venue: "職大學報", Date: "2020-12-28", URL: &url},
		{ID: "def", Kind: bibliography.PhDThesis, Author: "張三", Title: "研究", Venue: "華東師範大學", Date: "2019-05-01"},
	}

	var buf bytes.Buffer
	n, err := WriteEntries(&buf, entries)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	want := `@article{abc,
  author = {謝啟陽},
  title = {論\{墨子\}},
  journaltitle = {職大學報},
  date = {2020-12-28},
  url = {http://kns.cnki.net/KXReader/Detail?filename=A}
}

@phdthesis{def,
  author = {張三},
  title = {研究},
  institution = {華東師範大學},
  date = {2019-05-01}
}
`
	assert.Equal(t, want, buf.String())
}

func TestExport_SkipsUnmapped(t *testing.T) {
	records := []*models.Record{
		{Title: "甲", Author: "a", Source: "s", Database: "碩士", Date: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Title: "乙", Author: "b", Source: "s", Database: "報紙", Date: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	path := filepath.Join(t.TempDir(), "out.bib")
	require.NoError(t, NewBibExporter(nil).Export(records, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "@"))
	assert.Contains(t, string(data), "@mastersthesis{")
}
