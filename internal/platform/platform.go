package platform

import (
	"context"
	"iter"

	"CNKIHunter/internal/models"
)

// Query 平台查询参数，对应 cli 的 search 命令
type Query struct {
	Keyword  string
	MaxPages int // <=0 使用平台配置
}

// Result 一次性收集完的查询结果
type Result struct {
	Total   int // 站点报告的结果总数，可能大于实际取回的条数
	Records []*models.Record
}

// Cursor 一次检索的惰性结果序列，只能遍历一次
type Cursor interface {
	Records() iter.Seq2[*models.Record, error]
	// Total 站点报告的结果总数，遍历开始后才有效
	Total() int
	Close() error
}

// Platform 检索平台接口
type Platform interface {
	Name() string

	// Open 提交检索并返回结果游标，调用方负责 Close
	Open(ctx context.Context, q Query) (Cursor, error)

	// Search 遍历游标并收集全部结果
	Search(ctx context.Context, q Query) (Result, error)

	GetConfig() Config
}

type Config interface {
	Validate() error
}

// Collect 把游标中的记录全部读出，遇到第一个错误即停止
func Collect(c Cursor) (Result, error) {
	var records []*models.Record
	for r, err := range c.Records() {
		if err != nil {
			return Result{Total: c.Total(), Records: records}, err
		}
		records = append(records, r)
	}
	return Result{Total: c.Total(), Records: records}, nil
}
