package db

import (
	"CNKIHunter/internal/models"
)

// RecordStorage 本地文献库。只保存检索到的记录，不保存任何翻页状态
type RecordStorage interface {
	// Upsert 以详情页链接去重，keyword 为得到该记录的检索词
	Upsert(keyword string, r *models.Record) (int64, error)

	ListRecords(cond models.RecordCondition) ([]*models.Record, int, error)

	CountRecords(cond models.RecordCondition) (int, error)

	DeleteRecords(cond models.RecordCondition) (int, error)

	Close() error
}
