// Package csl 以 CSL-YAML 输出文献条目，供 Pandoc 与文献管理软件读取。
package csl

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"CNKIHunter/internal/bibliography"
	"CNKIHunter/internal/models"
)

type Item struct {
	ID             string `yaml:"id"`
	Type           string `yaml:"type"`
	Genre          string `yaml:"genre,omitempty"`
	Title          string `yaml:"title"`
	Author         []Name `yaml:"author,omitempty"`
	ContainerTitle string `yaml:"container-title,omitempty"`
	Publisher      string `yaml:"publisher,omitempty"`
	Issued         *Date  `yaml:"issued,omitempty"`
	URL            string `yaml:"URL,omitempty"`
}

// Name 中文姓名不拆分姓与名，统一使用 literal
type Name struct {
	Literal string `yaml:"literal"`
}

type Date struct {
	DateParts [][]int `yaml:"date-parts"`
}

type CSLExporter struct {
	ids bibliography.IDGenerator
}

func NewCSLExporter(ids bibliography.IDGenerator) *CSLExporter {
	if ids == nil {
		ids = bibliography.ContentIDs
	}
	return &CSLExporter{ids: ids}
}

func (e *CSLExporter) Export(records []*models.Record, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("创建文件失败: %w", err)
	}
	defer file.Close()

	if err := Format(file, bibliography.FromRecords(records, e.ids)); err != nil {
		return fmt.Errorf("写入 CSL 失败: %w", err)
	}
	return nil
}

// Format 把条目写成 CSL-YAML 列表
func Format(w io.Writer, entries []bibliography.Entry) error {
	items := make([]Item, len(entries))
	for i, e := range entries {
		items[i] = ToItem(e)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

func ToItem(e bibliography.Entry) Item {
	item := Item{
		ID:     e.ID,
		Title:  e.Title,
		Author: SplitAuthors(e),
	}
	switch e.Kind {
	case bibliography.PhDThesis:
		item.Type, item.Genre, item.Publisher = "thesis", "博士論文", e.Venue
	case bibliography.MastersThesis:
		item.Type, item.Genre, item.Publisher = "thesis", "碩士論文", e.Venue
	default:
		item.Type, item.ContainerTitle = "article-journal", e.Venue
	}
	if d, err := time.Parse(models.DateLayout, e.Date); err == nil {
		item.Issued = &Date{DateParts: [][]int{{d.Year(), int(d.Month()), d.Day()}}}
	}
	if e.URL != nil {
		item.URL = *e.URL
	}
	return item
}

// SplitAuthors 每位作者作为一个不拆分姓名的 literal
func SplitAuthors(e bibliography.Entry) []Name {
	var names []Name
	for _, a := range e.Authors() {
		names = append(names, Name{Literal: a})
	}
	return names
}
