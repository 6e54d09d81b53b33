package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"CNKIHunter/internal/core"
	"CNKIHunter/internal/platform/cnki"
	"CNKIHunter/pkg/logger"
)

const (
	envPrefix = "CNKI"
	appDir    = ".cnkihunter"
)

// DatabaseConfig 本地文献库
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"` // debug/info/warn/error
	Color bool   `mapstructure:"color" yaml:"color"`
	File  string `mapstructure:"file" yaml:"file"` // 留空只输出到终端
}

// AppConfig 应用总配置(全局 + 平台)
type AppConfig struct {
	Env      string              `mapstructure:"env" yaml:"env"`
	Log      LogConfig           `mapstructure:"log" yaml:"log"`
	Database DatabaseConfig      `mapstructure:"database" yaml:"database"`
	Download core.DownloadConfig `mapstructure:"download" yaml:"download"`
	Zotero   core.ZoteroConfig   `mapstructure:"zotero" yaml:"zotero"`
	FeiShu   core.FeiShuConfig   `mapstructure:"feishu" yaml:"feishu"`
	CNKI     cnki.Config         `mapstructure:"cnki" yaml:"cnki"`
}

var (
	global     *AppConfig
	once       sync.Once
	globalErr  error
	configPath string // 当前使用的配置文件路径
)

// HomeDir ~/.cnkihunter，取不到 home 时退回当前目录
func HomeDir() string {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return appDir
	}
	return filepath.Join(homedir, appDir)
}

func setDefaults(v *viper.Viper) {
	home := HomeDir()
	v.SetDefault("env", "prod")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.color", true)
	v.SetDefault("log.file", "")

	v.SetDefault("database.path", filepath.Join(home, "data", "cnkihunter.db"))

	v.SetDefault("download.dir", filepath.Join(home, "downloads"))
	v.SetDefault("download.interval", "3s")

	v.SetDefault("zotero.user_id", "")
	v.SetDefault("zotero.api_key", "")
	v.SetDefault("zotero.collection", "")

	v.SetDefault("feishu.app_id", "")
	v.SetDefault("feishu.app_secret", "")
	v.SetDefault("feishu.folder_token", "")

	d := cnki.DefaultConfig()
	v.SetDefault("cnki.base_url", d.BaseURL)
	v.SetDefault("cnki.timeout", d.Timeout)
	v.SetDefault("cnki.proxy", d.Proxy)
	v.SetDefault("cnki.user_agent", d.UserAgent)
	v.SetDefault("cnki.charset", d.Charset)
	v.SetDefault("cnki.load_timeout", d.LoadTimeout)
	v.SetDefault("cnki.frame_timeout", d.FrameTimeout)
	v.SetDefault("cnki.nav_timeout", d.NavTimeout)
	v.SetDefault("cnki.poll_interval", d.PollInterval)
	v.SetDefault("cnki.page_interval", d.PageInterval)
	v.SetDefault("cnki.max_pages", d.MaxPages)
	v.SetDefault("cnki.next_label", d.NextLabel)
	v.SetDefault("cnki.maximize", d.Maximize)
}

// Init 可额外传入目录或具体文件路径
func Init(configPaths ...string) (*AppConfig, error) {
	once.Do(func() {
		global, configPath, globalErr = Load(configPaths...)
	})
	return global, globalErr
}

func MustInit(configPaths ...string) *AppConfig {
	cfg, err := Init(configPaths...)
	if err != nil {
		panic(err)
	}
	return cfg
}

func Get() *AppConfig {
	if global == nil {
		_, _ = Init()
	}
	return global
}

func GetConfigPath() string {
	if configPath == "" {
		_, _ = Init()
	}
	return configPath
}

// Load 读取配置但不缓存；找不到配置文件时使用默认值
func Load(configPaths ...string) (*AppConfig, string, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.AddConfigPath(filepath.Join(HomeDir(), "config"))

	for _, p := range configPaths {
		if p == "" {
			continue
		}
		if strings.HasSuffix(p, ".yaml") || strings.HasSuffix(p, ".yml") {
			v.SetConfigFile(p)
		} else {
			v.AddConfigPath(p)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	used := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, "", fmt.Errorf("读取配置文件失败: %w", err)
		}
		logger.Debug("未找到配置文件，使用默认配置")
	} else {
		used = v.ConfigFileUsed()
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, "", fmt.Errorf("配置解析失败: %w", err)
	}
	if err := cfg.CNKI.Validate(); err != nil {
		return nil, "", fmt.Errorf("cnki 配置不合法: %w", err)
	}
	return cfg, used, nil
}

// DefaultConfigFile ~/.cnkihunter/config/config.yaml
func DefaultConfigFile() string {
	return filepath.Join(HomeDir(), "config", "config.yaml")
}

// CreateExampleConfig 在 home 目录下生成示例配置，已存在时不覆盖
func CreateExampleConfig() (string, error) {
	path := DefaultConfigFile()
	if _, err := os.Stat(path); err == nil {
		logger.Warn("home 目录下已存在配置文件，请前往编辑即可")
		return path, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("检查配置文件时出错: %w", err)
	}
	if err := WriteExampleConfig(path); err != nil {
		return "", err
	}
	logger.Info("已在 %s 中创建配置文件", path)
	return path, nil
}

const exampleHeader = `# CNKIHunter 配置文件
# 所有键都可以用环境变量覆盖，例如 CNKI_ZOTERO_API_KEY、CNKI_CNKI_MAX_PAGES
# 时间使用 Go 的 duration 写法，如 30s、1m30s

`

// WriteExampleConfig 按默认值渲染 yaml，键顺序与 AppConfig 一致
func WriteExampleConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}
	home := HomeDir()
	d := cnki.DefaultConfig()
	example := yaml.MapSlice{
		{Key: "env", Value: "prod"},
		{Key: "log", Value: yaml.MapSlice{
			{Key: "level", Value: "info"},
			{Key: "color", Value: true},
			{Key: "file", Value: ""},
		}},
		{Key: "database", Value: yaml.MapSlice{
			{Key: "path", Value: filepath.Join(home, "data", "cnkihunter.db")},
		}},
		{Key: "download", Value: yaml.MapSlice{
			{Key: "dir", Value: filepath.Join(home, "downloads")},
			{Key: "interval", Value: "3s"},
		}},
		{Key: "zotero", Value: yaml.MapSlice{
			{Key: "user_id", Value: ""},
			{Key: "api_key", Value: ""},
			{Key: "collection", Value: ""},
		}},
		{Key: "feishu", Value: yaml.MapSlice{
			{Key: "app_id", Value: ""},
			{Key: "app_secret", Value: ""},
			{Key: "folder_token", Value: ""},
		}},
		{Key: "cnki", Value: yaml.MapSlice{
			{Key: "base_url", Value: d.BaseURL},
			{Key: "timeout", Value: d.Timeout.String()},
			{Key: "proxy", Value: d.Proxy},
			{Key: "user_agent", Value: d.UserAgent},
			{Key: "charset", Value: d.Charset},
			{Key: "load_timeout", Value: d.LoadTimeout.String()},
			{Key: "frame_timeout", Value: d.FrameTimeout.String()},
			{Key: "nav_timeout", Value: d.NavTimeout.String()},
			{Key: "poll_interval", Value: d.PollInterval.String()},
			{Key: "page_interval", Value: d.PageInterval.String()},
			{Key: "max_pages", Value: d.MaxPages},
			{Key: "next_label", Value: d.NextLabel},
			{Key: "maximize", Value: d.Maximize},
		}},
	}

	body, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("渲染示例配置失败: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(exampleHeader), body...), 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}
