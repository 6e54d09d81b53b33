package cnki

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"CNKIHunter/internal/browser"
	"CNKIHunter/internal/models"
)

// 每行固定六个单元格：序号、题名、作者、来源、发表时间、来源数据库
const cellsPerRow = 6

var (
	// 无法下载时站点用弹窗脚本代替真实链接
	reAlertPlaceholder = regexp.MustCompile(`javascript:alert.+`)
	reSpaces           = regexp.MustCompile(`\s+`)
)

// ParseRow 把结果表中的一行解析为 Record，base 用于把相对链接解析为绝对地址。
// 任一必需区域缺失或格式不对都返回 *ParseError，不会返回残缺记录
func ParseRow(row *goquery.Selection, base *url.URL) (*models.Record, error) {
	cells := row.ChildrenFiltered("td")
	if cells.Length() != cellsPerRow {
		return nil, &ParseError{Field: "cells", Err: fmt.Errorf("expected %d cells, got %d", cellsPerRow, cells.Length())}
	}
	number, title, author, source, published, database :=
		cells.Eq(0), cells.Eq(1), cells.Eq(2), cells.Eq(3), cells.Eq(4), cells.Eq(5)

	rec := &models.Record{
		Author:   cleanText(author.Text()),
		Source:   cleanText(source.Text()),
		Database: cleanText(database.Text()),
	}

	if err := parseTitleCell(title, base, rec); err != nil {
		return nil, err
	}

	download, err := parseIndexCell(number, base)
	if err != nil {
		return nil, err
	}
	rec.Download = download

	date, err := parseLeadingDate(published.Text())
	if err != nil {
		return nil, &ParseError{Field: "date", Err: err}
	}
	rec.Date = date

	sourceAnchor := source.Find("a").First()
	sourceLink, ok := browser.ResolveHref(base, sourceAnchor)
	if !ok {
		return nil, &ParseError{Field: "source_link", Err: errors.New("source cell has no link")}
	}
	rec.SourceLink = sourceLink

	return rec, nil
}

// parseTitleCell 第一个链接是详情页；存在第二个链接时它是跳转包装，
// 真正的全文地址在 domain= 之后并经过百分号编码
func parseTitleCell(cell *goquery.Selection, base *url.URL, rec *models.Record) error {
	links := cell.Find("a")
	switch n := links.Length(); {
	case n == 0:
		return &ParseError{Field: "title", Err: errors.New("title cell has no link")}
	case n > 2:
		return &ParseError{Field: "title", Err: fmt.Errorf("title cell has %d links, expected at most 2", n)}
	}

	first := links.Eq(0)
	titleLink, ok := browser.ResolveHref(base, first)
	if !ok || titleLink == "" {
		return &ParseError{Field: "title_link", Err: errors.New("title link has no href")}
	}
	rec.Title = cleanText(first.Text())
	rec.TitleLink = titleLink

	if links.Length() < 2 {
		return nil
	}

	redirect, ok := browser.ResolveHref(base, links.Eq(1))
	if !ok {
		return &ParseError{Field: "html_link", Err: errors.New("second title link has no href")}
	}
	htmlLink, err := decodeRedirectTarget(redirect)
	if err != nil {
		return &ParseError{Field: "html_link", Err: err}
	}
	rec.HTMLLink = &htmlLink
	return nil
}

// decodeRedirectTarget 取第一个 domain= 之后的全部内容并做百分号解码。
// '+' 保持原样，无法解码的 % 序列原样保留
func decodeRedirectTarget(redirect string) (string, error) {
	_, encoded, found := strings.Cut(redirect, "domain=")
	if !found {
		return "", fmt.Errorf("redirect %q has no domain= parameter", redirect)
	}
	return unescapeLenient(encoded), nil
}

func unescapeLenient(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// parseIndexCell 序号单元格里依次是下载链接和序号链接
func parseIndexCell(cell *goquery.Selection, base *url.URL) (*string, error) {
	links := cell.Find("a")
	if links.Length() != 2 {
		return nil, &ParseError{Field: "download", Err: fmt.Errorf("index cell has %d links, expected 2", links.Length())}
	}
	raw, ok := links.Eq(0).Attr("href")
	if !ok {
		return nil, &ParseError{Field: "download", Err: errors.New("download link has no href")}
	}
	if IsAlertPlaceholder(raw) {
		return nil, nil
	}
	download := browser.Resolve(base, raw)
	return &download, nil
}

// IsAlertPlaceholder 链接是否为弹窗提示而非真实下载地址
func IsAlertPlaceholder(href string) bool {
	return reAlertPlaceholder.MatchString(href)
}

// parseLeadingDate 按空白切分，第一个片段按 ISO 日期解析
func parseLeadingDate(text string) (time.Time, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return time.Time{}, errors.New("empty date cell")
	}
	d, err := time.Parse(models.DateLayout, fields[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", fields[0], err)
	}
	return d, nil
}

func cleanText(text string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(text, " "))
}
