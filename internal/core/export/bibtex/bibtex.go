// Package bibtex 把检索记录写成 .bib 文件，无法映射条目类型的记录会被跳过。
package bibtex

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"CNKIHunter/internal/bibliography"
	"CNKIHunter/internal/models"
)

var escaper = strings.NewReplacer(`\`, `\\`, `{`, `\{`, `}`, `\}`)

type BibExporter struct {
	ids bibliography.IDGenerator
}

// NewBibExporter ids 为 nil 时使用内容派生的标识
func NewBibExporter(ids bibliography.IDGenerator) *BibExporter {
	if ids == nil {
		ids = bibliography.ContentIDs
	}
	return &BibExporter{ids: ids}
}

func (e *BibExporter) Export(records []*models.Record, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("创建文件失败: %w", err)
	}
	defer file.Close()

	if _, err := WriteEntries(file, bibliography.FromRecords(records, e.ids)); err != nil {
		return fmt.Errorf("写入 BibTeX 失败: %w", err)
	}
	return nil
}

// WriteEntries 逐条写出，返回写出的条目数
func WriteEntries(w io.Writer, entries []bibliography.Entry) (int, error) {
	bw := bufio.NewWriter(w)
	for i, e := range entries {
		if i > 0 {
			bw.WriteString("\n")
		}
		writeEntry(bw, e)
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	return len(entries), nil
}

func writeEntry(w *bufio.Writer, e bibliography.Entry) {
	fmt.Fprintf(w, "@%s{%s,\n", e.Kind, e.ID)
	fields := [][2]string{
		{"author", e.Author},
		{"title", e.Title},
		{e.Kind.VenueField(), e.Venue},
		{"date", e.Date},
	}
	if e.URL != nil {
		fields = append(fields, [2]string{"url", *e.URL})
	}
	for i, f := range fields {
		sep := ","
		if i == len(fields)-1 {
			sep = ""
		}
		fmt.Fprintf(w, "  %s = {%s}%s\n", f[0], escaper.Replace(f[1]), sep)
	}
	w.WriteString("}\n")
}
