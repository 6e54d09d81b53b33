package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"CNKIHunter/internal/bibliography"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "從文獻庫導出記錄到文件、Zotero 或飛書",
	Long: `export 把文獻庫中符合條件的記錄寫成文件（--format），
或上傳到 Zotero（--to zotero）、飛書多維表格（--to feishu）。`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringP("format", "f", "json", "文件格式: json, csv, bib, yaml")
	exportCmd.Flags().StringP("out", "o", "", "输出文件（默认 cnki_export.<format>）")
	exportCmd.Flags().String("to", "", "上传目标: zotero, feishu")
	exportCmd.Flags().String("collection", "", "Zotero collection key（默认取配置）")
	exportCmd.Flags().String("name", "", "飞书多维表格名称（默认按时间生成）")
	exportCmd.Flags().Bool("random-ids", false, "BibTeX/CSL/Zotero 条目使用随机标识")
	addConditionFlags(exportCmd)

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cond, err := conditionFromFlags(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")
	to, _ := cmd.Flags().GetString("to")
	randomIDs, _ := cmd.Flags().GetBool("random-ids")

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()
	if randomIDs {
		app.SetIDGenerator(bibliography.RandomIDs)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch to {
	case "":
		if out == "" {
			out = "cnki_export." + format
		}
		n, err := app.ExportRecords(ctx, format, out, cond)
		if err != nil {
			return err
		}
		fmt.Printf("已导出 %d 条记录到 %s\n", n, out)
	case "zotero":
		collection, _ := cmd.Flags().GetString("collection")
		res, err := app.ExportToZotero(ctx, collection, cond)
		if err != nil {
			return err
		}
		fmt.Printf("Zotero: 成功 %d 条，失败 %d 条\n", res.Added, len(res.Failed))
	case "feishu":
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = "CNKI " + time.Now().Format("2006-01-02 15:04")
		}
		url, err := app.ExportToFeiShu(ctx, name, cond)
		if err != nil {
			return err
		}
		fmt.Printf("已上传到飞书多维表格: %s\n", url)
	default:
		return fmt.Errorf("不支持的上传目标 %q: 可选 zotero 或 feishu", to)
	}
	return nil
}
