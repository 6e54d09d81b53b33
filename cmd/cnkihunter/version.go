package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"CNKIHunter/internal/core"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "打印版本号",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cnkihunter %s (platforms: %v)\n", version, core.List())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
