package csv

import (
	"encoding/csv"
	"fmt"
	"os"

	"CNKIHunter/internal/models"
)

// Headers 表头顺序与 Rows 中每行的列顺序一致
var Headers = []string{
	"題名", "作者", "來源", "發表時間", "來源數據庫", "下載連結", "全文連結", "詳情頁", "來源連結",
}

type CSVExporter struct{}

func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

func (e *CSVExporter) Export(records []*models.Record, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("创建文件失败: %w", err)
	}
	defer file.Close()

	// Excel 需要 BOM 才能识别 UTF-8
	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("写入 BOM 失败: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(Rows(records)); err != nil {
		return fmt.Errorf("写入数据失败: %w", err)
	}
	return nil
}

// Rows 把记录转为带表头的二维表，也用于飞书多维表格上传
func Rows(records []*models.Record) [][]string {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, Headers)
	for _, r := range records {
		if r == nil {
			continue
		}
		rows = append(rows, []string{
			r.Title,
			r.Author,
			r.Source,
			r.DateString(),
			r.Database,
			deref(r.Download),
			deref(r.HTMLLink),
			r.TitleLink,
			r.SourceLink,
		})
	}
	return rows
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
