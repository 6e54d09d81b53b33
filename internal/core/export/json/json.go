package json

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"CNKIHunter/internal/models"
)

// Item 输出文件中的一个对象，download/url 缺失时写为 null
type Item struct {
	Author      string  `json:"author"`
	Title       string  `json:"title"`
	Publication string  `json:"publication/university"`
	Date        string  `json:"date"`
	Download    *string `json:"download"`
	URL         *string `json:"url"`
	Database    string  `json:"database"`
}

func ItemFrom(r *models.Record) Item {
	return Item{
		Author:      r.Author,
		Title:       r.Title,
		Publication: r.Source,
		Date:        r.DateString(),
		Download:    r.Download,
		URL:         r.HTMLLink,
		Database:    r.Database,
	}
}

// Record 还原为记录，详情页与来源链接不在输出文件中
func (it Item) Record() (*models.Record, error) {
	d, err := time.Parse(models.DateLayout, it.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", it.Date, err)
	}
	return &models.Record{
		Title:    it.Title,
		HTMLLink: it.URL,
		Author:   it.Author,
		Source:   it.Publication,
		Date:     d,
		Download: it.Download,
		Database: it.Database,
	}, nil
}

// Writer 增量写出 JSON 数组：先写 "[\n"，对象之间用 ",\n" 分隔，Close 时写 "\n]\n"。
// 写出过程中中断时，文件中已有的对象不会丢失
type Writer struct {
	w      io.Writer
	opened bool
	count  int
	closed bool
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (jw *Writer) Write(r *models.Record) error {
	if jw.closed {
		return fmt.Errorf("writer already closed")
	}
	if err := jw.open(); err != nil {
		return err
	}
	if jw.count > 0 {
		if _, err := io.WriteString(jw.w, ",\n"); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false) // 不转义 HTML 字符
	if err := enc.Encode(ItemFrom(r)); err != nil {
		return fmt.Errorf("编码记录失败: %w", err)
	}
	if _, err := jw.w.Write(bytes.TrimRight(buf.Bytes(), "\n")); err != nil {
		return fmt.Errorf("写入 JSON 失败: %w", err)
	}
	jw.count++
	return nil
}

func (jw *Writer) Close() error {
	if jw.closed {
		return nil
	}
	if err := jw.open(); err != nil {
		return err
	}
	jw.closed = true
	_, err := io.WriteString(jw.w, "\n]\n")
	return err
}

// Count 已写出的记录数
func (jw *Writer) Count() int { return jw.count }

func (jw *Writer) open() error {
	if jw.opened {
		return nil
	}
	jw.opened = true
	_, err := io.WriteString(jw.w, "[\n")
	return err
}

// Read 读取 Writer 写出的数组
func Read(r io.Reader) ([]Item, error) {
	var items []Item
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("解析 JSON 失败: %w", err)
	}
	return items, nil
}

func ReadFile(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开文件失败: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// FileWriter 写入文件的增量输出端
type FileWriter struct {
	*Writer
	file *os.File
}

func Create(path string) (*FileWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("创建文件失败: %w", err)
	}
	return &FileWriter{Writer: NewWriter(file), file: file}, nil
}

func (fw *FileWriter) Close() error {
	werr := fw.Writer.Close()
	if err := fw.file.Close(); err != nil && werr == nil {
		werr = err
	}
	return werr
}

type JSONExporter struct{}

func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

func (e *JSONExporter) Export(records []*models.Record, outputPath string) error {
	fw, err := Create(outputPath)
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := fw.Write(r); err != nil {
			fw.Close()
			return err
		}
	}
	return fw.Close()
}
