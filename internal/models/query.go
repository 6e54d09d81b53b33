package models

import (
	"time"
)

// RecordCondition 本地文献库的过滤条件
type RecordCondition struct {
	Keyword   string   // 爬取时使用的检索词
	Databases []string // 来源数据库，如 期刊、博士
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int
	Offset    int
}
