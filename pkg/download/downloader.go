// Package download 按记录中的下载链接把全文保存到本地目录。
package download

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"CNKIHunter/internal/models"
	"CNKIHunter/pkg/logger"
)

// 站点对连续下载很敏感，默认每 3 秒一个文件
const DefaultInterval = 3 * time.Second

type Downloader struct {
	client  *http.Client
	limiter *rate.Limiter
	dir     string
	log     *logger.Logger
}

// New client 需要带上检索时的 Cookie 才能下载，由调用方传入
func New(client *http.Client, dir string, interval time.Duration) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Downloader{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		dir:     dir,
		log:     logger.WithPrefix("Download"),
	}
}

type Status int

const (
	Saved Status = iota
	// 没有下载链接
	Skipped
	// 目标文件已存在
	Exists
	Failed
)

type Result struct {
	Record *models.Record
	Path   string
	Status Status
	Err    error
}

// Download 逐条下载；单条失败记入结果继续下一条，ctx 取消时返回已完成部分
func (d *Downloader) Download(ctx context.Context, records []*models.Record) ([]Result, error) {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return nil, fmt.Errorf("创建下载目录失败: %w", err)
	}

	results := make([]Result, 0, len(records))
	for i, r := range records {
		if r == nil {
			continue
		}
		if r.Download == nil {
			results = append(results, Result{Record: r, Status: Skipped})
			continue
		}
		if err := d.limiter.Wait(ctx); err != nil {
			return results, err
		}

		d.log.Info("[%d/%d] %s", i+1, len(records), r.Title)
		path, existed, err := d.fetch(ctx, r)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			d.log.Warn("下载失败 [%s]: %v", r.Title, err)
			results = append(results, Result{Record: r, Status: Failed, Err: err})
		case existed:
			results = append(results, Result{Record: r, Path: path, Status: Exists})
		default:
			results = append(results, Result{Record: r, Path: path, Status: Saved})
		}
	}
	return results, nil
}

func (d *Downloader) fetch(ctx context.Context, r *models.Record) (string, bool, error) {
	base := FileName(r)
	// 扩展名要等响应头才能确定，先按前缀查重
	if matches, _ := filepath.Glob(filepath.Join(d.dir, globEscape(base)+".*")); len(matches) > 0 {
		return matches[0], true, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, *r.Download, nil)
	if err != nil {
		return "", false, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	ext := extension(resp.Header)
	if ext == "" {
		// 未登录时站点返回提示页而不是文件
		return "", false, fmt.Errorf("响应不是全文文件: %s", resp.Header.Get("Content-Type"))
	}

	path := filepath.Join(d.dir, base+ext)
	tmp, err := os.CreateTemp(d.dir, ".part-*")
	if err != nil {
		return "", false, err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", false, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", false, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", false, err
	}
	return path, false, nil
}

var unsafeChars = regexp.MustCompile(`[\\/:*?"<>|\s]+`)

// FileName 题名_发表日期，去掉文件系统不允许的字符
func FileName(r *models.Record) string {
	title := strings.Trim(unsafeChars.ReplaceAllString(r.Title, "_"), "_")
	if runes := []rune(title); len(runes) > 80 {
		title = string(runes[:80])
	}
	return title + "_" + r.DateString()
}

// extension 优先取 Content-Disposition 中的文件名，其次看 Content-Type
func extension(h http.Header) string {
	if _, params, err := mime.ParseMediaType(h.Get("Content-Disposition")); err == nil {
		if ext := strings.ToLower(filepath.Ext(params["filename"])); ext != "" {
			return ext
		}
	}
	mt, _, _ := mime.ParseMediaType(h.Get("Content-Type"))
	switch mt {
	case "application/pdf":
		return ".pdf"
	case "application/caj", "application/x-caj", "application/octet-stream":
		return ".caj"
	default:
		return ""
	}
}

func globEscape(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`, "*", `\*`, "?", `\?`).Replace(s)
}
