package export

import (
	"CNKIHunter/internal/models"
)

// Exporter 导出器接口
type Exporter interface {
	// Export 导出记录到指定文件
	Export(records []*models.Record, outputPath string) error
}

// RecordWriter 边检索边写出的输出端，Close 负责补全文件结尾
type RecordWriter interface {
	Write(r *models.Record) error
	Close() error
}
