package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"CNKIHunter/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "查看或生成配置文件",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "在 ~/.cnkihunter/config 下生成示例配置",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.CreateExampleConfig()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "打印当前使用的配置文件",
	Run: func(cmd *cobra.Command, args []string) {
		if p := config.GetConfigPath(); p != "" {
			fmt.Println(p)
			return
		}
		fmt.Printf("未找到配置文件，使用默认配置（可运行 cnkihunter config init 生成 %s）\n", config.DefaultConfigFile())
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}
