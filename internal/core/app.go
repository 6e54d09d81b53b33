package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	storage "CNKIHunter/db"
	dbsqlite "CNKIHunter/db/sqlite"

	"CNKIHunter/internal/bibliography"
	exporter "CNKIHunter/internal/core/export"
	"CNKIHunter/internal/core/export/bibtex"
	"CNKIHunter/internal/core/export/csl"
	csv "CNKIHunter/internal/core/export/csv"
	json "CNKIHunter/internal/core/export/json"
	"CNKIHunter/internal/ir"
	"CNKIHunter/internal/models"
	"CNKIHunter/internal/platform"
	"CNKIHunter/pkg/download"
	"CNKIHunter/pkg/logger"
	feishu "CNKIHunter/pkg/upload/feishu"
	zotero "CNKIHunter/pkg/upload/zotero"
)

type ZoteroConfig struct {
	UserID     string `mapstructure:"user_id" yaml:"user_id"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	Collection string `mapstructure:"collection" yaml:"collection"` // 默认写入的 collection key
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`     // 留空使用 api.zotero.org
}

type FeiShuConfig struct {
	AppID       string `mapstructure:"app_id" yaml:"app_id"`
	AppSecret   string `mapstructure:"app_secret" yaml:"app_secret"`
	FolderToken string `mapstructure:"folder_token" yaml:"folder_token"` // 多维表格所在文件夹，留空为根目录
}

type DownloadConfig struct {
	Dir      string        `mapstructure:"dir" yaml:"dir"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	Proxy    string        `mapstructure:"proxy" yaml:"proxy"`
}

type App struct {
	db          storage.RecordStorage
	platformCfg map[string]platform.Config
	ids         bibliography.IDGenerator
	zoteroCfg   ZoteroConfig
	feishuCfg   FeiShuConfig
	downloadCfg DownloadConfig
}

func NewApp(databasePath string, pCfg map[string]platform.Config, zoteroCfg ZoteroConfig, feishuCfg FeiShuConfig, downloadCfg DownloadConfig) (*App, error) {
	if databasePath == "" {
		homeDir, _ := os.UserHomeDir()
		databasePath = filepath.Join(homeDir, ".cnkihunter", "data", "cnkihunter.db")
	}
	sqliteDB, err := dbsqlite.NewSQLiteDB(databasePath)
	if err != nil {
		return nil, err
	}
	if pCfg == nil {
		pCfg = map[string]platform.Config{}
	}

	return &App{
		db:          sqliteDB,
		platformCfg: pCfg,
		ids:         bibliography.ContentIDs,
		zoteroCfg:   zoteroCfg,
		feishuCfg:   feishuCfg,
		downloadCfg: downloadCfg,
	}, nil
}

func (a *App) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// SetIDGenerator 替换书目条目的标识生成方式，nil 恢复为内容派生
func (a *App) SetIDGenerator(ids bibliography.IDGenerator) {
	if ids == nil {
		ids = bibliography.ContentIDs
	}
	a.ids = ids
}

func (a *App) GetPlatform(platformName string) (platform.Platform, error) {
	prov, ok := Get(platformName)
	if !ok {
		return nil, fmt.Errorf("未知或未实现的平台: %s", platformName)
	}

	pcfg, ok := a.platformCfg[platformName]
	if !ok {
		logger.Debug("使用平台默认配置: %s", platformName)
		pcfg = prov.DefaultConfig()
	}
	return prov.New(pcfg)
}

// CrawlResult 一次检索的汇总，Records 为按顺序取回的全部记录
type CrawlResult struct {
	Total   int
	Records []*models.Record
	Saved   int
}

// Crawl 遍历检索结果，每条记录先写入 sink（可为 nil），save 为真时再存入文献库。
// 出错时返回已取回的部分，sink 由调用方关闭
func (a *App) Crawl(ctx context.Context, platformName string, q platform.Query, sink exporter.RecordWriter, save bool) (CrawlResult, error) {
	logger.Info("开始检索平台: %s", platformName)
	plat, err := a.GetPlatform(platformName)
	if err != nil {
		return CrawlResult{}, fmt.Errorf("创建平台实例失败: %w", err)
	}

	cur, err := plat.Open(ctx, q)
	if err != nil {
		return CrawlResult{}, fmt.Errorf("检索失败: %w", err)
	}
	defer cur.Close()

	var res CrawlResult
	for r, err := range cur.Records() {
		if err != nil {
			res.Total = cur.Total()
			return res, fmt.Errorf("检索中断: %w", err)
		}
		res.Records = append(res.Records, r)

		if sink != nil {
			if err := sink.Write(r); err != nil {
				res.Total = cur.Total()
				return res, fmt.Errorf("写入结果失败: %w", err)
			}
		}
		if save {
			if _, err := a.db.Upsert(q.Keyword, r); err != nil {
				res.Total = cur.Total()
				return res, fmt.Errorf("保存记录失败(%s): %w", r.TitleLink, err)
			}
			res.Saved++
		}
	}
	res.Total = cur.Total()
	logger.Info("检索完成，取回 %d 条记录，保存 %d 条", len(res.Records), res.Saved)
	return res, nil
}

// NewExporter 按格式名返回导出器：json、csv、bib、yaml
func (a *App) NewExporter(format string) (exporter.Exporter, error) {
	switch format {
	case "json":
		return json.NewJSONExporter(), nil
	case "csv":
		return csv.NewCSVExporter(), nil
	case "bib", "bibtex":
		return bibtex.NewBibExporter(a.ids), nil
	case "yaml", "csl":
		return csl.NewCSLExporter(a.ids), nil
	default:
		return nil, fmt.Errorf("不支持的导出格式: %s", format)
	}
}

// ExportRecords 把文献库中符合条件的记录导出到文件
func (a *App) ExportRecords(ctx context.Context, format, outputPath string, cond models.RecordCondition) (int, error) {
	logger.Info("开始导出记录: 格式=%s, 输出=%s", format, outputPath)

	exp, err := a.NewExporter(format)
	if err != nil {
		return 0, err
	}
	records, err := a.recordsFor(cond)
	if err != nil {
		return 0, err
	}
	if err := exp.Export(records, outputPath); err != nil {
		return 0, fmt.Errorf("导出失败: %w", err)
	}

	logger.Info("导出成功: %d 条记录 -> %s", len(records), outputPath)
	return len(records), nil
}

// ExportToZotero collectionKey 为空时使用配置中的 collection
func (a *App) ExportToZotero(ctx context.Context, collectionKey string, cond models.RecordCondition) (zotero.UploadResult, error) {
	logger.Info("开始导出到 Zotero")

	if a.zoteroCfg.UserID == "" || a.zoteroCfg.APIKey == "" {
		return zotero.UploadResult{}, fmt.Errorf("zotero 配置不完整，请在配置文件中设置 zotero.user_id 和 zotero.api_key")
	}
	records, err := a.recordsFor(cond)
	if err != nil {
		return zotero.UploadResult{}, err
	}

	entries := bibliography.FromRecords(records, a.ids)
	if skipped := len(records) - len(entries); skipped > 0 {
		logger.Warn("%d 条记录的来源数据库无法映射为文献类型，已跳过", skipped)
	}

	if collectionKey == "" {
		collectionKey = a.zoteroCfg.Collection
	}
	var opts []zotero.Option
	if a.zoteroCfg.BaseURL != "" {
		opts = append(opts, zotero.WithBaseURL(a.zoteroCfg.BaseURL))
	}
	client := zotero.NewClient(a.zoteroCfg.UserID, a.zoteroCfg.APIKey, opts...)

	res, err := client.AddEntries(ctx, entries, collectionKey)
	if err != nil {
		return res, fmt.Errorf("添加到 Zotero 失败: %w", err)
	}
	logger.Info("导出到 Zotero 完成: 成功 %d 条，失败 %d 条", res.Added, len(res.Failed))
	return res, nil
}

// ExportToFeiShu 新建多维表格并返回其地址
func (a *App) ExportToFeiShu(ctx context.Context, fileName string, cond models.RecordCondition) (string, error) {
	logger.Info("开始导出到 FeiShu")

	if a.feishuCfg.AppID == "" || a.feishuCfg.AppSecret == "" {
		return "", fmt.Errorf("feishu 配置不完整，请在配置文件中设置 feishu.app_id 和 feishu.app_secret")
	}
	records, err := a.recordsFor(cond)
	if err != nil {
		return "", err
	}

	client := feishu.NewClient(a.feishuCfg.AppID, a.feishuCfg.AppSecret, fileName, a.feishuCfg.FolderToken)
	url, err := client.UploadRows(ctx, csv.Rows(records))
	if err != nil {
		return "", fmt.Errorf("上传到飞书失败: %w", err)
	}

	logger.Info("导出到飞书成功: %d 条记录, url=%s", len(records), url)
	return url, nil
}

// SearchLibrary 在符合条件的记录上做 BM25 排序
func (a *App) SearchLibrary(ctx context.Context, query string, cond models.RecordCondition, topK int) ([]*models.ScoredRecord, error) {
	logger.Info("开始本地检索: %s", query)
	records, err := a.recordsFor(cond)
	if err != nil {
		return nil, err
	}

	tok, err := ir.NewTokenizer()
	if err != nil {
		return nil, err
	}
	searcher := ir.NewIRSearcher(tok)
	if err := searcher.BuildIndex(records); err != nil {
		return nil, err
	}
	logger.Debug("索引统计: %v", searcher.GetIndexStats())
	return searcher.Search(query, topK)
}

// DownloadFiles 下载符合条件记录的全文，dir 为空时使用配置中的目录
func (a *App) DownloadFiles(ctx context.Context, dir string, cond models.RecordCondition) ([]download.Result, error) {
	if dir == "" {
		dir = a.downloadCfg.Dir
	}
	if dir == "" {
		return nil, fmt.Errorf("未指定下载目录")
	}
	records, err := a.recordsFor(cond)
	if err != nil {
		return nil, err
	}

	client, err := NewSessionClient(5*time.Minute, a.downloadCfg.Proxy)
	if err != nil {
		return nil, err
	}
	interval := a.downloadCfg.Interval
	if interval <= 0 {
		interval = download.DefaultInterval
	}
	return download.New(client, dir, interval).Download(ctx, records)
}

func (a *App) CountRecords(ctx context.Context, cond models.RecordCondition) (int, error) {
	return a.db.CountRecords(cond)
}

func (a *App) DeleteRecords(ctx context.Context, cond models.RecordCondition) (int, error) {
	logger.Info("删除记录")
	return a.db.DeleteRecords(cond)
}

func (a *App) ListRecords(ctx context.Context, cond models.RecordCondition) ([]*models.Record, int, error) {
	return a.db.ListRecords(cond)
}

func (a *App) recordsFor(cond models.RecordCondition) ([]*models.Record, error) {
	records, _, err := a.db.ListRecords(cond)
	if err != nil {
		return nil, fmt.Errorf("查询记录失败: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("没有找到符合条件的记录")
	}
	return records, nil
}
