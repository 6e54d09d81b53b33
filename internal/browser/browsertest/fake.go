// Package browsertest 提供内存中的 browser.Session 替身，按 URL 返回预置的 HTML。
package browsertest

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"CNKIHunter/internal/browser"
)

// Session 以 URL -> HTML 映射模拟浏览器。
// 点击指向未登记页面的链接时返回 browser.ErrTimeout，相当于控件始终无法激活
type Session struct {
	Pages map[string]string

	// ClickErr 不为 nil 时在每次点击前调用，返回非 nil 即作为点击结果
	ClickErr func(el *goquery.Selection) error
	// LoadingPolls 每次导航后，前 N 次 WaitFor 看到的是空白页面
	LoadingPolls int

	Visited   []string
	Clicks    []string
	Stops     int
	Submitted url.Values
	Closed    bool

	url     *url.URL
	doc     *goquery.Document
	source  string
	pending int
	fills   map[string]string
}

func New(pages map[string]string) *Session {
	return &Session{Pages: pages, fills: map[string]string{}}
}

func (s *Session) Open(_ context.Context, rawURL string) error {
	return s.navigate(rawURL)
}

func (s *Session) URL() *url.URL {
	if s.url == nil {
		return nil
	}
	u := *s.url
	return &u
}

func (s *Session) Find(loc browser.Locator) (*goquery.Selection, error) {
	if s.pending > 0 {
		return nil, fmt.Errorf("%w: %s (page loading)", browser.ErrNoSuchElement, loc)
	}
	sel := browser.Select(s.doc, loc)
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrNoSuchElement, loc)
	}
	return sel, nil
}

// WaitFor 不真正睡眠：页面仍在"加载"时消耗一次轮询，加载完仍找不到则立即超时
func (s *Session) WaitFor(ctx context.Context, loc browser.Locator, timeout time.Duration) (*goquery.Selection, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sel, err := s.Find(loc)
		if err == nil {
			return sel, nil
		}
		if s.pending == 0 {
			return nil, fmt.Errorf("%w: %s after %v", browser.ErrTimeout, loc, timeout)
		}
		s.pending--
	}
}

func (s *Session) Click(_ context.Context, el *goquery.Selection) error {
	if !browser.Owns(s.doc, el) {
		return browser.ErrStale
	}
	s.Clicks = append(s.Clicks, strings.TrimSpace(el.First().Text()))
	if s.ClickErr != nil {
		if err := s.ClickErr(el); err != nil {
			return err
		}
	}
	href, ok := browser.ResolveHref(s.url, el.First())
	if !ok {
		return browser.ErrNotInteractable
	}
	if _, exists := s.Pages[href]; !exists {
		return fmt.Errorf("%w: %s", browser.ErrTimeout, href)
	}
	return s.navigate(href)
}

func (s *Session) Fill(el *goquery.Selection, text string) error {
	if !browser.Owns(s.doc, el) {
		return browser.ErrStale
	}
	name, _ := el.Attr("name")
	s.fills[name] = text
	return nil
}

// Submit 记录表单值并导航到 action（不带查询串）
func (s *Session) Submit(_ context.Context, el *goquery.Selection) error {
	if !browser.Owns(s.doc, el) {
		return browser.ErrStale
	}
	form := el.Closest("form")
	if form.Length() == 0 {
		return browser.ErrNotInteractable
	}
	s.Submitted = url.Values{}
	for k, v := range s.fills {
		s.Submitted.Set(k, v)
	}
	return s.navigate(browser.Resolve(s.url, form.AttrOr("action", "")))
}

func (s *Session) SwitchToFrame(_ context.Context, el *goquery.Selection) error {
	if !browser.Owns(s.doc, el) {
		return browser.ErrStale
	}
	return s.navigate(browser.Resolve(s.url, el.First().AttrOr("src", "")))
}

func (s *Session) Stop() error {
	s.Stops++
	return nil
}

func (s *Session) Source() (string, error) {
	if s.doc == nil {
		return "", fmt.Errorf("no page loaded")
	}
	return s.source, nil
}

func (s *Session) Close() error {
	s.Closed = true
	return nil
}

func (s *Session) navigate(rawURL string) error {
	body, ok := s.Pages[rawURL]
	if !ok {
		return fmt.Errorf("page not found: %s", rawURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return err
	}
	s.url = u
	s.doc = doc
	s.source = body
	s.pending = s.LoadingPolls
	s.fills = map[string]string{}
	s.Visited = append(s.Visited, rawURL)
	return nil
}

var _ browser.Session = (*Session)(nil)
