package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"CNKIHunter/internal/bibliography"
	"CNKIHunter/internal/core"
	"CNKIHunter/internal/core/export"
	jsonexport "CNKIHunter/internal/core/export/json"
	"CNKIHunter/internal/platform"
	_ "CNKIHunter/internal/platform/cnki"
)

const defaultOutput = "cnki_search_result.json"

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "按關鍵字檢索並寫出結果",
	Long: `search 提交關鍵字檢索，最多翻 10 頁，把每條記錄寫進輸出文件。
JSON 格式邊檢索邊寫出，中途出錯時已取回的記錄仍是合法的 JSON 數組。`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringP("format", "f", "json", "输出格式: json, csv, bib, yaml")
	searchCmd.Flags().StringP("out", "o", defaultOutput, "输出文件")
	searchCmd.Flags().String("bib", "", "另外写出 BibTeX 文件")
	searchCmd.Flags().Bool("save", false, "同时存入本地文献库")
	searchCmd.Flags().Int("max-pages", 0, "最多翻页数（1-10，默认取配置）")
	searchCmd.Flags().Bool("random-ids", false, "BibTeX/CSL 条目使用随机标识")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	keyword := strings.TrimSpace(strings.Join(args, " "))
	if keyword == "" {
		return fmt.Errorf("关键词不能为空")
	}
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")
	bibPath, _ := cmd.Flags().GetString("bib")
	save, _ := cmd.Flags().GetBool("save")
	maxPages, _ := cmd.Flags().GetInt("max-pages")
	randomIDs, _ := cmd.Flags().GetBool("random-ids")

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()
	if randomIDs {
		app.SetIDGenerator(bibliography.RandomIDs)
	}

	// 非 JSON 格式在检索结束后一次性导出，先确认格式可用
	var exp export.Exporter
	if format != "json" {
		if exp, err = app.NewExporter(format); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	q := platform.Query{Keyword: keyword, MaxPages: maxPages}
	var res core.CrawlResult
	var crawlErr error
	if exp == nil {
		fw, err := jsonexport.Create(out)
		if err != nil {
			return err
		}
		res, crawlErr = app.Crawl(ctx, "cnki", q, fw, save)
		if err := fw.Close(); err != nil && crawlErr == nil {
			crawlErr = err
		}
	} else {
		res, crawlErr = app.Crawl(ctx, "cnki", q, nil, save)
		if len(res.Records) > 0 {
			if err := exp.Export(res.Records, out); err != nil && crawlErr == nil {
				crawlErr = err
			}
		}
	}

	if bibPath != "" && len(res.Records) > 0 {
		bib, _ := app.NewExporter("bib")
		if err := bib.Export(res.Records, bibPath); err != nil && crawlErr == nil {
			crawlErr = err
		}
	}

	fmt.Printf("站点报告 %d 条结果，取回 %d 条，已写入 %s\n", res.Total, len(res.Records), out)
	if save {
		fmt.Printf("已存入文献库 %d 条\n", res.Saved)
	}
	return crawlErr
}
