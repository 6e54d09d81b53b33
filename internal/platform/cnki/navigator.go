package cnki

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"regexp"
	"strconv"
	"strings"
	"time"

	"CNKIHunter/internal/browser"
	"CNKIHunter/internal/models"
	"CNKIHunter/pkg/logger"
)

// 结果页中的固定区域
const (
	selResultsTable = "table.GridTableContent"
	selTotalCount   = "td.TitleLeftCell td"
	selPageSize     = "font.numNow"
)

var reDigits = regexp.MustCompile(`\d+`)

// Outcome 翻页结果。到达最后一页是正常结束，不是错误
type Outcome int

const (
	Advanced Outcome = iota
	NoMoreResults
)

func (o Outcome) String() string {
	switch o {
	case Advanced:
		return "advanced"
	case NoMoreResults:
		return "no more results"
	default:
		return "unknown"
	}
}

// Navigator 读取当前结果页的分页信息与数据行，并负责跳到下一页。
// 它持有的会话不可并发使用
type Navigator struct {
	session    browser.Session
	nextLabel  string
	navTimeout time.Duration
	log        *logger.Logger
}

func NewNavigator(session browser.Session, cfg *Config) *Navigator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Navigator{
		session:    session,
		nextLabel:  cfg.NextLabel,
		navTimeout: cfg.NavTimeout,
		log:        logger.WithPrefix("CNKI"),
	}
}

// Metadata 读取结果总数与当前每页条数，计算总页数。
// 任一区域缺失或无法解析时返回 *NavigationError
func (n *Navigator) Metadata(ctx context.Context) (models.PageMetadata, error) {
	countEl, err := n.session.WaitFor(ctx, browser.CSS(selTotalCount), n.navTimeout)
	if err != nil {
		return models.PageMetadata{}, &NavigationError{Region: "total count", Err: err}
	}
	digits := reDigits.FindString(countEl.First().Text())
	if digits == "" {
		return models.PageMetadata{}, &NavigationError{Region: "total count", Err: fmt.Errorf("no number in %q", cleanText(countEl.First().Text()))}
	}
	total, err := strconv.Atoi(digits)
	if err != nil {
		return models.PageMetadata{}, &NavigationError{Region: "total count", Err: err}
	}

	sizeEl, err := n.session.Find(browser.CSS(selPageSize))
	if err != nil {
		return models.PageMetadata{}, &NavigationError{Region: "page size", Err: err}
	}
	size, err := strconv.Atoi(strings.TrimSpace(sizeEl.First().Text()))
	if err != nil {
		return models.PageMetadata{}, &NavigationError{Region: "page size", Err: err}
	}

	meta, err := models.NewPageMetadata(total, size)
	if err != nil {
		return models.PageMetadata{}, &NavigationError{Region: "page size", Err: err}
	}
	return meta, nil
}

// Rows 返回当前页数据行（跳过表头）的记录序列。
// 行在调用时即从页面快照取出，遍历过程中不再查询页面；序列只能遍历一次，
// 必须在 Advance 之前遍历完。解析失败时产出 *ParseError 并结束
func (n *Navigator) Rows(ctx context.Context) iter.Seq2[*models.Record, error] {
	table, err := n.session.WaitFor(ctx, browser.CSS(selResultsTable), n.navTimeout)
	if err != nil {
		err = &NavigationError{Region: "results table", Err: err}
	}
	base := n.session.URL()
	consumed := false

	return func(yield func(*models.Record, error) bool) {
		if consumed {
			return
		}
		consumed = true
		if err != nil {
			yield(nil, err)
			return
		}

		rows := table.First().Find("tr")
		for i := 1; i < rows.Length(); i++ {
			rec, err := ParseRow(rows.Eq(i), base)
			if err != nil {
				var pe *ParseError
				if errors.As(err, &pe) {
					pe.Row = i
				}
				yield(nil, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Advance 等待"下一页"链接出现，中止仍在加载的内容后点击它。
// 链接等不到、已过期或无法点击都视为最后一页，返回 NoMoreResults；
// 不检查新页面是否加载完成，留给下一次 Metadata/Rows 等待
func (n *Navigator) Advance(ctx context.Context) (Outcome, error) {
	link, err := n.session.WaitFor(ctx, browser.LinkText(n.nextLabel), n.navTimeout)
	if err != nil {
		if endOfResults(err) {
			return NoMoreResults, nil
		}
		return NoMoreResults, fmt.Errorf("wait for next page link: %w", err)
	}

	if err := n.session.Stop(); err != nil {
		n.log.Warn("中止页面加载失败: %v", err)
	}

	if err := n.session.Click(ctx, link); err != nil {
		if endOfResults(err) {
			n.log.Debug("点击下一页失败，视为最后一页: %v", err)
			return NoMoreResults, nil
		}
		return NoMoreResults, fmt.Errorf("click next page: %w", err)
	}
	n.log.Debug("正在前往下一页")
	return Advanced, nil
}

func endOfResults(err error) bool {
	return errors.Is(err, browser.ErrTimeout) ||
		errors.Is(err, browser.ErrStale) ||
		errors.Is(err, browser.ErrNotInteractable) ||
		errors.Is(err, browser.ErrNoSuchElement)
}
