package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"

	"CNKIHunter/pkg/logger"
)

// HTTPOptions HTTPSession 的行为参数
type HTTPOptions struct {
	UserAgent    string
	Charset      string        // "big5" 强制按 Big5 解码，留空则按响应头/meta 自动识别
	PageInterval time.Duration // 两次页面加载之间的最小间隔
	PollInterval time.Duration // WaitFor 的轮询间隔
}

// HTTPSession 以 HTTP 请求 + 静态 DOM 实现 Session。
// 每次导航都会整页加载，因此 Stop 无需做任何事
type HTTPSession struct {
	client  *http.Client
	opts    HTTPOptions
	limiter *rate.Limiter
	log     *logger.Logger

	url    *url.URL
	method string
	doc    *goquery.Document
	source string
	fills  map[*html.Node]string
}

func NewHTTPSession(client *http.Client, opts HTTPOptions) *HTTPSession {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	limit := rate.Inf
	if opts.PageInterval > 0 {
		limit = rate.Every(opts.PageInterval)
	}
	return &HTTPSession{
		client:  client,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		log:     logger.WithPrefix("browser"),
		fills:   map[*html.Node]string{},
	}
}

func (s *HTTPSession) Open(ctx context.Context, rawURL string) error {
	return s.load(ctx, http.MethodGet, rawURL, nil)
}

func (s *HTTPSession) URL() *url.URL {
	if s.url == nil {
		return nil
	}
	u := *s.url
	return &u
}

func (s *HTTPSession) Find(loc Locator) (*goquery.Selection, error) {
	sel := Select(s.doc, loc)
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchElement, loc)
	}
	return sel, nil
}

func (s *HTTPSession) WaitFor(ctx context.Context, loc Locator, timeout time.Duration) (*goquery.Selection, error) {
	deadline := time.Now().Add(timeout)
	for {
		if sel, err := s.Find(loc); err == nil {
			return sel, nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: %s after %v", ErrTimeout, loc, timeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.opts.PollInterval):
		}

		// 只有 GET 页面可以安全地重新加载，POST 结果页只能等待超时
		if s.method == http.MethodGet && s.url != nil {
			if err := s.load(ctx, http.MethodGet, s.url.String(), nil); err != nil {
				s.log.Debug("重新加载 %s 失败: %v", s.url, err)
			}
		}
	}
}

func (s *HTTPSession) Click(ctx context.Context, el *goquery.Selection) error {
	if !Owns(s.doc, el) {
		return ErrStale
	}
	el = el.First()

	switch goquery.NodeName(el) {
	case "a":
		href, ok := ResolveHref(s.URL(), el)
		if !ok || href == "" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return fmt.Errorf("%w: link %q", ErrNotInteractable, strings.TrimSpace(el.Text()))
		}
		if err := s.load(ctx, http.MethodGet, href, nil); err != nil {
			// 目标页面打不开时按点击未生效处理
			if ctx.Err() != nil || errors.Is(err, ErrTimeout) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrNotInteractable, err)
		}
		return nil
	case "input", "button":
		return s.Submit(ctx, el)
	default:
		return fmt.Errorf("%w: <%s>", ErrNotInteractable, goquery.NodeName(el))
	}
}

func (s *HTTPSession) Fill(el *goquery.Selection, text string) error {
	if !Owns(s.doc, el) {
		return ErrStale
	}
	if _, ok := el.Attr("name"); !ok {
		return fmt.Errorf("%w: input without name", ErrNotInteractable)
	}
	s.fills[el.Get(0)] = text
	return nil
}

func (s *HTTPSession) Submit(ctx context.Context, el *goquery.Selection) error {
	if !Owns(s.doc, el) {
		return ErrStale
	}
	form := el.Closest("form")
	if form.Length() == 0 {
		return fmt.Errorf("%w: element is not inside a form", ErrNotInteractable)
	}

	values := s.formValues(form)
	target, err := url.Parse(Resolve(s.url, form.AttrOr("action", "")))
	if err != nil || target.Host == "" {
		return fmt.Errorf("%w: form without resolvable action", ErrNotInteractable)
	}

	method, _ := form.Attr("method")
	if strings.EqualFold(method, http.MethodPost) {
		return s.load(ctx, http.MethodPost, target.String(), values)
	}
	target.RawQuery = values.Encode()
	return s.load(ctx, http.MethodGet, target.String(), nil)
}

// formValues 收集表单字段，Fill 写入的值覆盖页面默认值
func (s *HTTPSession) formValues(form *goquery.Selection) url.Values {
	values := url.Values{}
	form.Find("input, select, textarea").Each(func(_ int, field *goquery.Selection) {
		name, ok := field.Attr("name")
		if !ok || name == "" {
			return
		}
		switch goquery.NodeName(field) {
		case "select":
			opt := field.Find("option[selected]").First()
			if opt.Length() == 0 {
				opt = field.Find("option").First()
			}
			if v, ok := opt.Attr("value"); ok {
				values.Set(name, v)
			} else {
				values.Set(name, strings.TrimSpace(opt.Text()))
			}
		case "textarea":
			if text, ok := s.fills[field.Get(0)]; ok {
				values.Set(name, text)
				return
			}
			values.Set(name, field.Text())
		default:
			typ, _ := field.Attr("type")
			switch strings.ToLower(typ) {
			case "submit", "button", "image", "reset", "file":
				return
			case "checkbox", "radio":
				if _, checked := field.Attr("checked"); !checked {
					return
				}
			}
			v, _ := field.Attr("value")
			if text, ok := s.fills[field.Get(0)]; ok {
				v = text
			}
			values.Add(name, v)
		}
	})
	return values
}

func (s *HTTPSession) SwitchToFrame(ctx context.Context, el *goquery.Selection) error {
	if !Owns(s.doc, el) {
		return ErrStale
	}
	src, ok := el.First().Attr("src")
	if !ok || src == "" {
		return fmt.Errorf("%w: frame without src", ErrNotInteractable)
	}
	return s.load(ctx, http.MethodGet, Resolve(s.url, src), nil)
}

func (s *HTTPSession) Stop() error { return nil }

func (s *HTTPSession) Source() (string, error) {
	if s.doc == nil {
		return "", fmt.Errorf("no page loaded")
	}
	return s.source, nil
}

func (s *HTTPSession) Close() error {
	s.client.CloseIdleConnections()
	s.doc = nil
	return nil
}

func (s *HTTPSession) load(ctx context.Context, method, target string, form url.Values) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("页面加载限速等待失败: %w", err)
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if s.opts.UserAgent != "" {
		req.Header.Set("User-Agent", s.opts.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	s.log.Debug("%s %s", method, target)
	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() == nil && isTimeout(err) {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	text, err := s.decode(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return fmt.Errorf("文字编码转换失败: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}

	s.url = resp.Request.URL
	s.method = method
	s.doc = doc
	s.source = text
	s.fills = map[*html.Node]string{}
	return nil
}

func (s *HTTPSession) decode(raw []byte, contentType string) (string, error) {
	if strings.EqualFold(s.opts.Charset, "big5") {
		out, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), traditionalchinese.Big5.NewDecoder()))
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
