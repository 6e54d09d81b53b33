// Package main 是 cnkihunter 命令行入口：检索中国期刊网并管理本地文献库。
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"CNKIHunter/config"
	"CNKIHunter/internal/core"
	"CNKIHunter/internal/platform"
	"CNKIHunter/pkg/logger"
)

// version 构建时通过 ldflags 注入
var version = "dev"

var appConfig *config.AppConfig

var rootCmd = &cobra.Command{
	Use:   "cnkihunter",
	Short: "檢索中國期刊網並導出題錄",
	Long: `cnkihunter 在中國期刊網（台灣鏡像站）上按關鍵字檢索，逐頁解析結果表格，
把記錄寫成 JSON / CSV / BibTeX / CSL-YAML，並可存入本地文獻庫、
上傳到 Zotero 或飛書多維表格。`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env 不存在时忽略，其中的 CNKI_* 变量可覆盖配置文件
		_ = godotenv.Load()

		cfgFile, _ := cmd.Flags().GetString("config")
		cfg, err := config.Init(cfgFile)
		if err != nil {
			return err
		}
		appConfig = cfg

		level := cfg.Log.Level
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = "debug"
		}
		logger.InitWithFile(level, cfg.Log.Color, cfg.Log.File)
		logger.Debug("配置文件: %s", config.GetConfigPath())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "配置文件路径（默认 ./config/config.yaml 或 ~/.cnkihunter/config/config.yaml）")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "输出调试日志")
}

// newApp 打开本地文献库，调用方负责 Close
func newApp() (*core.App, error) {
	if appConfig == nil {
		return nil, fmt.Errorf("配置未初始化")
	}
	pcfg := map[string]platform.Config{
		"cnki": &appConfig.CNKI,
	}
	return core.NewApp(appConfig.Database.Path, pcfg, appConfig.Zotero, appConfig.FeiShu, appConfig.Download)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
