package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jsonexport "CNKIHunter/internal/core/export/json"
	"CNKIHunter/internal/models"
	"CNKIHunter/internal/platform"
)

type fakeConfig struct{}

func (fakeConfig) Validate() error { return nil }

// fakePlatform 按顺序吐出 records，failAfter>0 时在第 failAfter 条之后返回错误
type fakePlatform struct {
	records   []*models.Record
	failAfter int
	closed    *bool
}

func (p *fakePlatform) Name() string               { return "fake" }
func (p *fakePlatform) GetConfig() platform.Config { return fakeConfig{} }

func (p *fakePlatform) Open(ctx context.Context, q platform.Query) (platform.Cursor, error) {
	if q.Keyword == "" {
		return nil, errors.New("keyword is required")
	}
	return &fakeCursor{p: p}, nil
}

func (p *fakePlatform) Search(ctx context.Context, q platform.Query) (platform.Result, error) {
	cur, err := p.Open(ctx, q)
	if err != nil {
		return platform.Result{}, err
	}
	defer cur.Close()
	return platform.Collect(cur)
}

type fakeCursor struct{ p *fakePlatform }

func (c *fakeCursor) Records() iter.Seq2[*models.Record, error] {
	return func(yield func(*models.Record, error) bool) {
		for i, r := range c.p.records {
			if c.p.failAfter > 0 && i == c.p.failAfter {
				yield(nil, errors.New("parse row 3: date"))
				return
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

func (c *fakeCursor) Total() int { return 99 }

func (c *fakeCursor) Close() error {
	if c.p.closed != nil {
		*c.p.closed = true
	}
	return nil
}

var current = &fakePlatform{}

func init() {
	MustRegister(Provider{
		Name:          "fake",
		New:           func(platform.Config) (platform.Platform, error) { return current, nil },
		DefaultConfig: func() platform.Config { return fakeConfig{} },
	})
}

func strPtr(s string) *string { return &s }

func sampleRecords() []*models.Record {
	return []*models.Record{
		{
			Title: "清華簡《尹至》新釋", TitleLink: "http://cnki.test/detail?f=1",
			HTMLLink: strPtr("http://kns.cnki.net/KXReader/Detail?f=1"),
			Author:   "李學勤; 王輝", Source: "文物", SourceLink: "http://cnki.test/navi?id=1",
			Date: time.Date(2021, 1, 15, 0, 0, 0, 0, time.UTC), Database: "期刊",
		},
		{
			Title: "墨子的人性論與政治論", TitleLink: "http://cnki.test/detail?f=2",
			Author: "謝啟陽", Source: "職大學報", SourceLink: "http://cnki.test/navi?id=2",
			Date: time.Date(2020, 12, 28, 0, 0, 0, 0, time.UTC), Database: "期刊",
		},
		{
			Title: "先秦政治思想研究", TitleLink: "http://cnki.test/detail?f=3",
			Author: "王五", Source: "華東師範大學", SourceLink: "http://cnki.test/navi?id=3",
			Date: time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC), Database: "碩士",
		},
	}
}

func newTestApp(t *testing.T, z ZoteroConfig) *App {
	t.Helper()
	a, err := NewApp(filepath.Join(t.TempDir(), "library.db"), nil, z, FeiShuConfig{}, DownloadConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestCrawl_StreamsAndSaves(t *testing.T) {
	closed := false
	current = &fakePlatform{records: sampleRecords(), closed: &closed}
	a := newTestApp(t, ZoteroConfig{})

	var buf bytes.Buffer
	sink := jsonexport.NewWriter(&buf)
	res, err := a.Crawl(context.Background(), "fake", platform.Query{Keyword: "尹至"}, sink, true)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	assert.True(t, closed)
	assert.Equal(t, 99, res.Total)
	assert.Len(t, res.Records, 3)
	assert.Equal(t, 3, res.Saved)

	items, err := jsonexport.Read(&buf)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "清華簡《尹至》新釋", items[0].Title)

	n, err := a.CountRecords(context.Background(), models.RecordCondition{Keyword: "尹至"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCrawl_ErrorKeepsPartialOutput(t *testing.T) {
	current = &fakePlatform{records: sampleRecords(), failAfter: 2}
	a := newTestApp(t, ZoteroConfig{})

	var buf bytes.Buffer
	sink := jsonexport.NewWriter(&buf)
	res, err := a.Crawl(context.Background(), "fake", platform.Query{Keyword: "尹至"}, sink, false)
	require.Error(t, err)
	require.NoError(t, sink.Close())

	assert.Len(t, res.Records, 2)
	assert.Equal(t, 0, res.Saved)
	items, err := jsonexport.Read(&buf)
	require.NoError(t, err, "出错后关闭的输出仍是合法 JSON")
	assert.Len(t, items, 2)

	n, err := a.CountRecords(context.Background(), models.RecordCondition{})
	require.NoError(t, err)
	assert.Zero(t, n, "未要求保存时不写文献库")
}

func TestCrawl_UnknownPlatform(t *testing.T) {
	a := newTestApp(t, ZoteroConfig{})
	_, err := a.Crawl(context.Background(), "nope", platform.Query{Keyword: "x"}, nil, false)
	assert.Error(t, err)
}

func seed(t *testing.T, a *App) {
	t.Helper()
	for _, r := range sampleRecords() {
		_, err := a.db.Upsert("尹至", r)
		require.NoError(t, err)
	}
}

func TestExportRecords(t *testing.T) {
	a := newTestApp(t, ZoteroConfig{})
	seed(t, a)
	dir := t.TempDir()

	tests := []struct {
		format string
		want   string
	}{
		{format: "json", want: `"title": "墨子的人性論與政治論"`},
		{format: "csv", want: "題名"},
		{format: "bib", want: "@mastersthesis{"},
		{format: "yaml", want: "type: article-journal"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			path := filepath.Join(dir, "out."+tt.format)
			n, err := a.ExportRecords(context.Background(), tt.format, path, models.RecordCondition{})
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Contains(t, string(data), tt.want)
		})
	}

	_, err := a.ExportRecords(context.Background(), "xml", filepath.Join(dir, "out.xml"), models.RecordCondition{})
	assert.Error(t, err)

	_, err = a.ExportRecords(context.Background(), "json", filepath.Join(dir, "none.json"), models.RecordCondition{Keyword: "不存在"})
	assert.Error(t, err, "没有记录时报错")
}

func TestExportToZotero(t *testing.T) {
	var got []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		successful := map[string]any{}
		for i := range got {
			successful[fmt.Sprint(i)] = map[string]string{"key": "K"}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"successful": successful, "failed": map[string]any{}})
	}))
	defer srv.Close()

	a := newTestApp(t, ZoteroConfig{UserID: "42", APIKey: "secret", BaseURL: srv.URL})
	seed(t, a)

	res, err := a.ExportToZotero(context.Background(), "", models.RecordCondition{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Added)
	require.Len(t, got, 3)

	types := []string{}
	for _, item := range got {
		types = append(types, item["itemType"].(string))
	}
	assert.ElementsMatch(t, []string{"journalArticle", "journalArticle", "thesis"}, types)
}

func TestExport_MissingCredentials(t *testing.T) {
	a := newTestApp(t, ZoteroConfig{})
	seed(t, a)

	_, err := a.ExportToZotero(context.Background(), "", models.RecordCondition{})
	assert.ErrorContains(t, err, "zotero")

	_, err = a.ExportToFeiShu(context.Background(), "尹至", models.RecordCondition{})
	assert.ErrorContains(t, err, "feishu")
}

func TestSearchLibrary(t *testing.T) {
	a := newTestApp(t, ZoteroConfig{})
	seed(t, a)

	hits, err := a.SearchLibrary(context.Background(), "政治", models.RecordCondition{}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.True(t, strings.Contains(h.Record.Title, "政治"))
	}

	hits, err = a.SearchLibrary(context.Background(), "政治", models.RecordCondition{Databases: []string{"碩士"}}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "先秦政治思想研究", hits[0].Record.Title)
}

func TestDownloadFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF"))
	}))
	defer srv.Close()

	a, err := NewApp(filepath.Join(t.TempDir(), "library.db"), nil, ZoteroConfig{}, FeiShuConfig{}, DownloadConfig{Interval: time.Millisecond})
	require.NoError(t, err)
	defer a.Close()

	records := sampleRecords()
	records[2].Download = strPtr(srv.URL + "/dl")
	for _, r := range records {
		_, err := a.db.Upsert("尹至", r)
		require.NoError(t, err)
	}

	dir := t.TempDir()
	results, err := a.DownloadFiles(context.Background(), dir, models.RecordCondition{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	saved := 0
	for _, r := range results {
		if r.Path != "" {
			saved++
			assert.FileExists(t, r.Path)
		}
	}
	assert.Equal(t, 1, saved)

	_, err = a.DownloadFiles(context.Background(), "", models.RecordCondition{})
	assert.Error(t, err, "未配置下载目录")
}

func TestRegistry(t *testing.T) {
	newFn := func(platform.Config) (platform.Platform, error) { return nil, nil }
	cfgFn := func() platform.Config { return nil }

	tests := []struct {
		name    string
		p       Provider
		wantErr string
	}{
		{name: "缺少名字", p: Provider{New: newFn, DefaultConfig: cfgFn}, wantErr: "站点名不能为空"},
		{name: "缺少 New", p: Provider{Name: "x", DefaultConfig: cfgFn}, wantErr: "缺少 New"},
		{name: "缺少 DefaultConfig", p: Provider{Name: "x", New: newFn}, wantErr: "缺少 DefaultConfig"},
		{name: "重复登记", p: Provider{Name: "fake", New: newFn, DefaultConfig: cfgFn}, wantErr: "重复登记"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorContains(t, Register(tt.p), tt.wantErr)
		})
	}

	assert.Panics(t, func() { MustRegister(Provider{}) })

	_, ok := Get("fake")
	assert.True(t, ok)
	_, ok = Get("x")
	assert.False(t, ok, "登记失败的站点不应出现")

	names := List()
	assert.Contains(t, names, "fake")
	assert.True(t, sort.StringsAreSorted(names))
}
