package cnki

import (
	"fmt"
	"time"

	"CNKIHunter/internal/platform"
)

// HardPageCap 单次检索最多翻到的页数，与站点报告的总页数无关
const HardPageCap = 10

type Config struct {
	// HTTP 行为
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Proxy     string        `mapstructure:"proxy" yaml:"proxy"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
	Charset   string        `mapstructure:"charset" yaml:"charset"` // 留空自动识别，繁体镜像站可设为 big5

	// 站点与翻页参数
	BaseURL      string        `mapstructure:"base_url" yaml:"base_url"`
	LoadTimeout  time.Duration `mapstructure:"load_timeout" yaml:"load_timeout"`   // 等待检索框出现的上限
	FrameTimeout time.Duration `mapstructure:"frame_timeout" yaml:"frame_timeout"` // 提交后等待结果框架与表格的上限
	NavTimeout   time.Duration `mapstructure:"nav_timeout" yaml:"nav_timeout"`     // 翻页时等待"下頁"链接的上限
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"` // 等待元素时的轮询间隔
	PageInterval time.Duration `mapstructure:"page_interval" yaml:"page_interval"` // 两次页面加载的最小间隔
	MaxPages     int           `mapstructure:"max_pages" yaml:"max_pages"`
	NextLabel    string        `mapstructure:"next_label" yaml:"next_label"`
	Maximize     bool          `mapstructure:"maximize" yaml:"maximize"` // 提交后切换到每页最多条目
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:      30 * time.Second,
		UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36",
		BaseURL:      "http://cnki.sris.com.tw/kns55",
		LoadTimeout:  50 * time.Second,
		FrameTimeout: 100 * time.Second,
		NavTimeout:   30 * time.Second,
		PollInterval: 500 * time.Millisecond,
		PageInterval: 1 * time.Second,
		MaxPages:     HardPageCap,
		NextLabel:    "下頁",
		Maximize:     true,
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("nil config")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.LoadTimeout <= 0 || c.FrameTimeout <= 0 || c.NavTimeout <= 0 {
		return fmt.Errorf("load_timeout, frame_timeout and nav_timeout must be positive")
	}
	if c.MaxPages <= 0 || c.MaxPages > HardPageCap {
		return fmt.Errorf("max_pages must be between 1 and %d, got %d", HardPageCap, c.MaxPages)
	}
	if c.NextLabel == "" {
		return fmt.Errorf("next_label is required")
	}
	if c.Charset != "" && c.Charset != "big5" && c.Charset != "utf-8" {
		return fmt.Errorf("unsupported charset: %s", c.Charset)
	}
	return nil
}

var _ platform.Config = (*Config)(nil)
