package models

import (
	"fmt"
	"time"
)

// 来源数据库的取值（繁体站点）
const (
	DatabaseJournal    = "期刊"
	DatabaseCollection = "輯刊"
	DatabaseDoctoral   = "博士"
	DatabaseMasters    = "碩士"
)

// DateLayout 发表时间使用 ISO-8601 日期
const DateLayout = "2006-01-02"

// Record 检索结果表格中的一行。构造后不再修改，可选字段用 nil 表示缺失
type Record struct {
	Title      string    `db:"title"`
	TitleLink  string    `db:"title_link"` // 详情页
	HTMLLink   *string   `db:"html_link"`  // 第二个标题链接 domain= 参数解码后的全文链接
	Author     string    `db:"author"`
	Source     string    `db:"source"` // 期刊名或学位授予单位
	SourceLink string    `db:"source_link"`
	Date       time.Time `db:"published_date"`
	Download   *string   `db:"download"` // 站点弹窗占位链接时为 nil
	Database   string    `db:"database"`
}

// DateString 返回 ISO 形式的发表日期
func (r *Record) DateString() string {
	return r.Date.Format(DateLayout)
}

func (r *Record) String() string {
	return fmt.Sprintf("題名      %s\n作者     %s\n來源     %s\n發表時間  %s\n下載連結　%s\n來源數據庫 %s",
		r.Title, r.Author, r.Source, r.DateString(), deref(r.Download), r.Database)
}

func deref(s *string) string {
	if s == nil {
		return "None"
	}
	return *s
}

// PageMetadata 每页重新计算的分页信息
type PageMetadata struct {
	TotalResults int
	PageSize     int
	TotalPages   int
}

// NewPageMetadata 按 ceil(total/pageSize) 计算总页数，pageSize 必须为正
func NewPageMetadata(total, pageSize int) (PageMetadata, error) {
	if pageSize <= 0 {
		return PageMetadata{}, fmt.Errorf("invalid page size: %d", pageSize)
	}
	if total < 0 {
		return PageMetadata{}, fmt.Errorf("invalid result count: %d", total)
	}
	return PageMetadata{
		TotalResults: total,
		PageSize:     pageSize,
		TotalPages:   (total + pageSize - 1) / pageSize,
	}, nil
}

// ScoredRecord 本地检索结果
type ScoredRecord struct {
	Record *Record
	Score  float64
}
