// Package browser 定义检索流程依赖的浏览器能力：定位元素、等待条件、点击、读取页面源码。
// 检索代码只依赖 Session 接口，真实实现（HTTPSession）与测试替身（browsertest）可以互换。
package browser

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	// ErrNoSuchElement 当前页面中没有匹配的元素
	ErrNoSuchElement = errors.New("no such element")
	// ErrTimeout 等待条件在超时前未满足
	ErrTimeout = errors.New("timed out waiting for element")
	// ErrStale 元素来自已经离开的页面
	ErrStale = errors.New("stale element reference")
	// ErrNotInteractable 元素存在但无法激活（例如脚本链接）
	ErrNotInteractable = errors.New("element not interactable")
)

type By int

const (
	ByCSS By = iota
	ByLinkText
	ByName
)

func (b By) String() string {
	switch b {
	case ByCSS:
		return "css"
	case ByLinkText:
		return "link text"
	case ByName:
		return "name"
	default:
		return "unknown"
	}
}

// Locator 元素定位方式
type Locator struct {
	By    By
	Value string
}

func CSS(selector string) Locator { return Locator{By: ByCSS, Value: selector} }

func LinkText(text string) Locator { return Locator{By: ByLinkText, Value: text} }

func Name(name string) Locator { return Locator{By: ByName, Value: name} }

func (l Locator) String() string {
	return l.By.String() + "=" + l.Value
}

// Session 单个浏览会话。会话状态可变且不可并发共享，翻页只能顺序进行。
// 元素以 goquery.Selection 快照的形式返回，离开页面后再操作会得到 ErrStale。
type Session interface {
	// Open 导航到指定地址
	Open(ctx context.Context, rawURL string) error
	// URL 当前页面地址，用于解析相对链接
	URL() *url.URL
	// Find 立即在当前页面中定位，找不到时返回 ErrNoSuchElement
	Find(loc Locator) (*goquery.Selection, error)
	// WaitFor 阻塞直到元素出现或超时（ErrTimeout）
	WaitFor(ctx context.Context, loc Locator, timeout time.Duration) (*goquery.Selection, error)
	// Click 激活链接或按钮
	Click(ctx context.Context, el *goquery.Selection) error
	// Fill 向输入框填入文本，提交表单时生效
	Fill(el *goquery.Selection, text string) error
	// Submit 提交元素所在的表单
	Submit(ctx context.Context, el *goquery.Selection) error
	// SwitchToFrame 进入 iframe 文档
	SwitchToFrame(ctx context.Context, el *goquery.Selection) error
	// Stop 中止仍在加载的页面内容
	Stop() error
	// Source 当前页面源码
	Source() (string, error)
	Close() error
}

// Select 在文档中按定位方式查找元素，链接文本比较前会去掉首尾空白
func Select(doc *goquery.Document, loc Locator) *goquery.Selection {
	if doc == nil {
		return &goquery.Selection{}
	}
	switch loc.By {
	case ByLinkText:
		return doc.Find("a").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.TrimSpace(s.Text()) == loc.Value
		})
	case ByName:
		return doc.Find(`[name="` + loc.Value + `"]`)
	default:
		return doc.Find(loc.Value)
	}
}

// Owns 判断元素是否属于该文档（否则视为过期元素）
func Owns(doc *goquery.Document, el *goquery.Selection) bool {
	if doc == nil || el == nil || len(el.Nodes) == 0 || len(doc.Nodes) == 0 {
		return false
	}
	root := el.Nodes[0]
	for root.Parent != nil {
		root = root.Parent
	}
	return root == doc.Nodes[0] && root.Type == html.DocumentNode
}

// ResolveHref 将元素的 href 解析为绝对地址，元素没有 href 时返回 false
func ResolveHref(base *url.URL, el *goquery.Selection) (string, bool) {
	href, ok := el.Attr("href")
	if !ok {
		return "", false
	}
	return Resolve(base, href), true
}

// Resolve 以 base 解析相对地址，无法解析时原样返回
func Resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
