package cnki

import (
	"context"
	"iter"

	"CNKIHunter/internal/models"
	"CNKIHunter/pkg/logger"
)

// Walker 按顺序遍历结果页：读取当前页全部记录，再决定是否翻页。
// 页数不超过 min(总页数, maxPages)，maxPages 最大为 HardPageCap
type Walker struct {
	nav      *Navigator
	maxPages int
	log      *logger.Logger

	started bool
	meta    models.PageMetadata
	pages   int
}

func NewWalker(nav *Navigator, maxPages int) *Walker {
	if maxPages <= 0 || maxPages > HardPageCap {
		maxPages = HardPageCap
	}
	return &Walker{
		nav:      nav,
		maxPages: maxPages,
		log:      logger.WithPrefix("CNKI"),
	}
}

// Records 返回跨页的记录序列，只能遍历一次。
// 分页信息只在开始时读取一次；解析错误与导航错误都会中止遍历
func (w *Walker) Records(ctx context.Context) iter.Seq2[*models.Record, error] {
	return func(yield func(*models.Record, error) bool) {
		if w.started {
			return
		}
		w.started = true

		meta, err := w.nav.Metadata(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		w.meta = meta
		w.log.Info("共找到 %d 条结果，最多取回 %d 页", meta.TotalResults, w.maxPages)

		for page := 1; ; page++ {
			w.pages = page
			w.log.Info("正在抓取第 %d/%d 页", page, meta.TotalPages)

			for rec, err := range w.nav.Rows(ctx) {
				if !yield(rec, err) || err != nil {
					return
				}
			}

			if page >= meta.TotalPages || page >= w.maxPages {
				return
			}

			outcome, err := w.nav.Advance(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if outcome == NoMoreResults {
				w.log.Info("已到达最后一页")
				return
			}
		}
	}
}

// Metadata 遍历开始时读到的分页信息，开始前为零值
func (w *Walker) Metadata() models.PageMetadata { return w.meta }

// Pages 已访问的页数
func (w *Walker) Pages() int { return w.pages }
