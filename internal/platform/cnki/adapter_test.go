package cnki

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CNKIHunter/internal/browser"
	"CNKIHunter/internal/browser/browsertest"
	"CNKIHunter/internal/core"
	"CNKIHunter/internal/platform"
)

const (
	testHome   = "http://cnki.test/kns55"
	testResult = "http://cnki.test/kns55/brief/result.aspx"
	testFrame  = "http://cnki.test/kns55/brief/brief.aspx"
)

func testSite() map[string]string {
	pages := pagedSite(5, 2, 3)
	pages[testHome] = `<html><body>
<form name="Form1" action="/kns55/brief/result.aspx" method="post">
  <input type="text" name="txt_1_value1">
  <input type="submit" value="檢索">
</form></body></html>`
	pages[testResult] = `<html><body><iframe name="iframeResult" src="/kns55/brief/brief.aspx"></iframe></body></html>`
	pages[testFrame] = `<html><body>
<span id="id_grid_display_num"><a href="?pagesize=10">10</a><a href="?pagesize=20">20</a><a href="` + pageURL(1) + `">50</a></span>
<table class="GridTableContent"><tr><td>序號</td></tr></table>
</body></html>`
	return pages
}

func newTestAdapter(t *testing.T, s *browsertest.Session, mutate func(*Config)) *Adapter {
	t.Helper()
	cfg := DefaultConfig()
	cfg.BaseURL = testHome
	if mutate != nil {
		mutate(cfg)
	}
	a, err := NewAdapter(cfg, WithSessionFactory(func(*Config) (browser.Session, error) { return s, nil }))
	require.NoError(t, err)
	return a
}

func TestAdapter_Search(t *testing.T) {
	s := browsertest.New(testSite())
	a := newTestAdapter(t, s, nil)

	res, err := a.Search(context.Background(), platform.Query{Keyword: "尹至"})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Total)
	assert.Len(t, res.Records, 6)
	assert.Equal(t, "尹至", s.Submitted.Get("txt_1_value1"))
	assert.Equal(t, []string{testHome, testResult, testFrame, pageURL(1), pageURL(2), pageURL(3)}, s.Visited)
	assert.True(t, s.Closed, "检索结束后应关闭会话")
}

func TestAdapter_QueryMaxPages(t *testing.T) {
	s := browsertest.New(testSite())
	a := newTestAdapter(t, s, nil)

	res, err := a.Search(context.Background(), platform.Query{Keyword: "尹至", MaxPages: 1})
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
}

func TestAdapter_WithoutMaximize(t *testing.T) {
	pages := testSite()
	// 不切换每页条数时结果就在框架页
	pages[testFrame] = pages[pageURL(1)]
	s := browsertest.New(pages)
	a := newTestAdapter(t, s, func(c *Config) { c.Maximize = false })

	cur, err := a.Open(context.Background(), platform.Query{Keyword: "尹至"})
	require.NoError(t, err)
	defer cur.Close()

	res, err := platform.Collect(cur)
	require.NoError(t, err)
	assert.Len(t, res.Records, 6)
	assert.Equal(t, 3, cur.(*cursor).Pages())
}

func TestAdapter_OpenFailures(t *testing.T) {
	tests := []struct {
		name    string
		keyword string
		drop    string
	}{
		{name: "关键词为空", keyword: ""},
		{name: "首页打不开", keyword: "尹至", drop: testHome},
		{name: "没有结果框架", keyword: "尹至", drop: testFrame},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := testSite()
			if tt.drop != "" {
				delete(pages, tt.drop)
			}
			s := browsertest.New(pages)
			a := newTestAdapter(t, s, nil)

			cur, err := a.Open(context.Background(), platform.Query{Keyword: tt.keyword})
			assert.Error(t, err)
			assert.Nil(t, cur)
			if tt.keyword != "" {
				assert.True(t, s.Closed, "失败时应关闭会话")
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "默认配置", mutate: func(*Config) {}},
		{name: "页数上限", mutate: func(c *Config) { c.MaxPages = HardPageCap + 1 }, wantErr: true},
		{name: "页数为零", mutate: func(c *Config) { c.MaxPages = 0 }, wantErr: true},
		{name: "缺少站点地址", mutate: func(c *Config) { c.BaseURL = "" }, wantErr: true},
		{name: "繁体编码", mutate: func(c *Config) { c.Charset = "big5" }},
		{name: "未知编码", mutate: func(c *Config) { c.Charset = "gbk" }, wantErr: true},
		{name: "翻页超时", mutate: func(c *Config) { c.NavTimeout = 0 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistered(t *testing.T) {
	prov, ok := core.Get("cnki")
	require.True(t, ok)
	p, err := prov.New(prov.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "cnki", p.Name())
}
