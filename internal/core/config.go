package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/rufus/internal/models"
	"github.com/RecoveryAshes/rufus/internal/utils"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 环境变量前缀, 如 RUFUS_SCORING_LLM_API_KEY
const EnvPrefix = "RUFUS"

// Config 应用程序配置
type Config struct {
	Crawl    models.CrawlConfig    `mapstructure:"crawl"`
	Fetch    models.FetchConfig    `mapstructure:"fetch"`
	Scoring  models.ScoringConfig  `mapstructure:"scoring"`
	Output   models.OutputConfig   `mapstructure:"output"`
	Resource models.ResourceConfig `mapstructure:"resource"`
	Logging  LoggingConfig         `mapstructure:"logging"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// LoadConfig 加载配置文件
// configPath为空时依次搜索 ./configs, ., ~/.rufus 下的 config.yaml,找不到时使用默认值
func LoadConfig(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		// 显式指定的文件必须存在
		if _, err := os.Stat(configPath); err != nil {
			return nil, &models.ConfigError{FilePath: configPath, Cause: err}
		}
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".rufus"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &models.ConfigError{FilePath: configPath, Cause: err}
		}
	} else {
		utils.Debugf("使用配置文件: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, &models.ConfigError{FilePath: v.ConfigFileUsed(), Cause: fmt.Errorf("解析配置失败: %w", err)}
	}

	return &config, nil
}

// newViper 创建带默认值和环境变量映射的viper实例
func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults 设置默认配置值
// 每个键都需要默认值,否则AutomaticEnv无法在Unmarshal时覆盖
func setDefaults(v *viper.Viper) {
	crawl := models.DefaultCrawlConfig()
	v.SetDefault("crawl.max_pages", crawl.MaxPages)
	v.SetDefault("crawl.min_relevance", crawl.MinRelevance)
	v.SetDefault("crawl.max_depth", crawl.MaxDepth)
	v.SetDefault("crawl.max_workers", crawl.MaxWorkers)
	v.SetDefault("crawl.mode", string(crawl.Mode))
	v.SetDefault("crawl.wait_time", crawl.WaitTime)
	v.SetDefault("crawl.headless", crawl.Headless)
	v.SetDefault("crawl.allow_cross_domain", crawl.AllowCrossDomain)
	v.SetDefault("crawl.show_progress", crawl.ShowProgress)

	fetch := models.DefaultFetchConfig()
	v.SetDefault("fetch.user_agent", fetch.UserAgent)
	v.SetDefault("fetch.delay_ms", fetch.DelayMs)
	v.SetDefault("fetch.random_delay_ms", fetch.RandomDelayMs)
	v.SetDefault("fetch.parallelism", fetch.Parallelism)
	v.SetDefault("fetch.respect_robots", fetch.RespectRobots)
	v.SetDefault("fetch.min_content_length", fetch.MinContentLength)
	v.SetDefault("fetch.max_body_size", fetch.MaxBodySize)
	v.SetDefault("fetch.render_wait_ms", fetch.RenderWaitMs)
	v.SetDefault("fetch.insecure_skip_verify", fetch.InsecureSkipVerify)
	v.SetDefault("fetch.headers", map[string]string{})

	scoring := models.DefaultScoringConfig()
	v.SetDefault("scoring.judge", string(scoring.Judge))
	v.SetDefault("scoring.llm.base_url", scoring.LLM.BaseURL)
	v.SetDefault("scoring.llm.api_key", "")
	v.SetDefault("scoring.llm.model", scoring.LLM.Model)
	v.SetDefault("scoring.llm.temperature", scoring.LLM.Temperature)
	v.SetDefault("scoring.llm.max_content_chars", scoring.LLM.MaxContentChars)
	v.SetDefault("scoring.llm.requests_per_minute", scoring.LLM.RequestsPerMinute)
	v.SetDefault("scoring.llm.timeout", scoring.LLM.Timeout)

	output := models.DefaultOutputConfig()
	v.SetDefault("output.format", output.Format)
	v.SetDefault("output.target", output.Target)
	v.SetDefault("output.prefix", output.Prefix)
	v.SetDefault("output.minio.endpoint", output.MinIO.Endpoint)
	v.SetDefault("output.minio.access_key", "")
	v.SetDefault("output.minio.secret_key", "")
	v.SetDefault("output.minio.use_ssl", output.MinIO.UseSSL)

	// 资源限制默认值(MB / %)
	v.SetDefault("resource.safety_reserve_memory", 512)
	v.SetDefault("resource.safety_threshold", 256)
	v.SetDefault("resource.cpu_load_threshold", 90)
	v.SetDefault("resource.max_slots", 8)

	logging := utils.DefaultLogConfig()
	v.SetDefault("logging.level", logging.Level)
	v.SetDefault("logging.log_dir", logging.LogDir)
	v.SetDefault("logging.rotation.max_size", logging.MaxSize)
	v.SetDefault("logging.rotation.max_backups", logging.MaxBackups)
	v.SetDefault("logging.rotation.max_age", logging.MaxAge)
	v.SetDefault("logging.rotation.compress", logging.Compress)
}

// WriteDefaultConfig 将默认配置写为YAML (rufus init)
// 文件已存在且force为false时返回错误
func WriteDefaultConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("配置文件已存在: %s (使用 --force 覆盖)", path)
		}
	}

	v := viper.New()
	setDefaults(v)
	data, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return fmt.Errorf("编码默认配置失败: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建配置目录失败: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}

// CLIOverrides 命令行参数, 零值(指针为nil)表示未指定
type CLIOverrides struct {
	MaxPages         int
	MinRelevance     *float64
	MaxDepth         int
	MaxWorkers       int
	Mode             string
	WaitTime         int
	Headless         *bool
	AllowCrossDomain bool
	Format           string
	Target           string
	UseLLM           bool
	LogLevel         string
}

// MergeCLIFlags 合并命令行参数到配置
// 命令行参数优先于配置文件
func (c *Config) MergeCLIFlags(o CLIOverrides) {
	if o.MaxPages > 0 {
		c.Crawl.MaxPages = o.MaxPages
	}
	if o.MinRelevance != nil {
		c.Crawl.MinRelevance = *o.MinRelevance
	}
	if o.MaxDepth > 0 {
		c.Crawl.MaxDepth = o.MaxDepth
	}
	if o.MaxWorkers > 0 {
		c.Crawl.MaxWorkers = o.MaxWorkers
	}
	if o.Mode != "" {
		c.Crawl.Mode = models.CrawlMode(o.Mode)
	}
	if o.WaitTime > 0 {
		c.Crawl.WaitTime = o.WaitTime
	}
	if o.Headless != nil {
		c.Crawl.Headless = *o.Headless
	}
	if o.AllowCrossDomain {
		c.Crawl.AllowCrossDomain = true
	}
	if o.Format != "" {
		c.Output.Format = o.Format
	}
	if o.Target != "" {
		c.Output.Target = o.Target
	}
	if o.UseLLM {
		c.Scoring.Judge = models.JudgeLLM
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
}

// Validate 验证合并后的配置
func (c *Config) Validate() error {
	mode, err := models.ParseCrawlMode(string(c.Crawl.Mode))
	if err != nil {
		return err
	}
	c.Crawl.Mode = mode

	if err := c.Crawl.Validate(); err != nil {
		return err
	}
	if err := c.Scoring.Validate(); err != nil {
		return err
	}
	if _, err := models.ParseOutputFormat(c.Output.Format); err != nil {
		return err
	}
	return nil
}

// LogConfig 转换为日志初始化参数
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
	}
}
