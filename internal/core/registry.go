package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"CNKIHunter/internal/platform"
)

// Provider 描述一个可按名字创建的检索站点。
// 站点包在 init 里调用 MustRegister，命令行只需空导入对应的包
type Provider struct {
	Name          string
	New           func(cfg platform.Config) (platform.Platform, error)
	DefaultConfig func() platform.Config
}

var (
	providersMu sync.RWMutex
	providers   = make(map[string]Provider)
)

// Register 登记站点，名字重复或缺少构造函数时报错
func Register(p Provider) error {
	switch {
	case p.Name == "":
		return errors.New("站点名不能为空")
	case p.New == nil:
		return fmt.Errorf("站点 %s 缺少 New", p.Name)
	case p.DefaultConfig == nil:
		return fmt.Errorf("站点 %s 缺少 DefaultConfig", p.Name)
	}

	providersMu.Lock()
	defer providersMu.Unlock()
	if _, dup := providers[p.Name]; dup {
		return fmt.Errorf("站点 %s 重复登记", p.Name)
	}
	providers[p.Name] = p
	return nil
}

// MustRegister 供 init 使用，登记失败直接 panic
func MustRegister(p Provider) {
	if err := Register(p); err != nil {
		panic(err)
	}
}

func Get(name string) (Provider, bool) {
	providersMu.RLock()
	p, ok := providers[name]
	providersMu.RUnlock()
	return p, ok
}

// List 返回已登记的站点名，按字母序排列
func List() []string {
	providersMu.RLock()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	providersMu.RUnlock()
	sort.Strings(names)
	return names
}
