//go:build mage

// Package main 开发用的 mage 目标：构建、测试、静态检查。
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "cnkihunter"
	cmdPkg  = "./cmd/cnkihunter"
)

var Default = Build

// Build 编译命令行到 bin/，版本号取 git describe
func Build() error {
	mg.Deps(Vet)
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		version = "dev"
	}
	out := filepath.Join(binDir, binName)
	ldflags := "-X main.version=" + version
	if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", out, cmdPkg); err != nil {
		return err
	}
	fmt.Printf("Built %s (%s)\n", out, version)
	return nil
}

// Test 运行全部单元测试
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Clean 删除构建产物
func Clean() error {
	return sh.Rm(binDir)
}
