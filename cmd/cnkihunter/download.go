package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"CNKIHunter/pkg/download"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "下載文獻庫中記錄的全文",
	Long: `download 依次請求符合條件記錄的下載連結，保存為「題名_發表時間」命名的文件。
沒有下載連結的記錄會被跳過，已存在的文件不會重複下載。`,
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().String("dir", "", "保存目录（默认取配置 download.dir）")
	addConditionFlags(downloadCmd)

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	cond, err := conditionFromFlags(cmd)
	if err != nil {
		return err
	}
	dir, _ := cmd.Flags().GetString("dir")

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := app.DownloadFiles(ctx, dir, cond)
	counts := map[download.Status]int{}
	for _, r := range results {
		counts[r.Status]++
	}
	fmt.Printf("下载 %d，已存在 %d，无链接 %d，失败 %d\n",
		counts[download.Saved], counts[download.Exists], counts[download.Skipped], counts[download.Failed])
	if err != nil {
		return err
	}
	if counts[download.Failed] > 0 {
		return fmt.Errorf("%d 个文件下载失败", counts[download.Failed])
	}
	return nil
}
