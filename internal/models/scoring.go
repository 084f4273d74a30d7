package models

import (
	"fmt"
	"strings"
)

// JudgeKind 语义评分后端
type JudgeKind string

const (
	JudgeOverlap JudgeKind = "overlap" // 离线词项重合度
	JudgeLLM     JudgeKind = "llm"     // OpenAI兼容的对话接口
)

// ScoringConfig 评分配置
type ScoringConfig struct {
	Judge JudgeKind `json:"judge" mapstructure:"judge"`
	LLM   LLMConfig `json:"llm" mapstructure:"llm"`
}

// LLMConfig 大模型评分配置
type LLMConfig struct {
	BaseURL           string  `json:"base_url" mapstructure:"base_url"`
	APIKey            string  `json:"api_key" mapstructure:"api_key"`
	Model             string  `json:"model" mapstructure:"model"`
	Temperature       float64 `json:"temperature" mapstructure:"temperature"`
	MaxContentChars   int     `json:"max_content_chars" mapstructure:"max_content_chars"`     // 发送前截断正文
	RequestsPerMinute int     `json:"requests_per_minute" mapstructure:"requests_per_minute"` // 0表示不限速
	Timeout           int     `json:"timeout" mapstructure:"timeout"`                         // 秒
}

// DefaultScoringConfig 默认评分配置
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Judge: JudgeOverlap,
		LLM: LLMConfig{
			BaseURL:           "https://api.openai.com/v1",
			Model:             "gpt-4o-mini",
			MaxContentChars:   4000,
			RequestsPerMinute: 60,
			Timeout:           30,
		},
	}
}

// Validate 验证评分配置
func (c *ScoringConfig) Validate() error {
	switch JudgeKind(strings.ToLower(string(c.Judge))) {
	case JudgeOverlap, "":
		return nil
	case JudgeLLM:
		if c.LLM.BaseURL == "" || c.LLM.Model == "" {
			return fmt.Errorf("llm评分需要配置base_url和model")
		}
		if c.LLM.MaxContentChars < 0 || c.LLM.RequestsPerMinute < 0 {
			return fmt.Errorf("llm评分的max_content_chars和requests_per_minute不能为负数")
		}
		return nil
	default:
		return fmt.Errorf("无效的评分后端: %s (可选: overlap, llm)", c.Judge)
	}
}

// OutputConfig 输出配置
type OutputConfig struct {
	Format string      `json:"format" mapstructure:"format"` // json | markdown | text
	Target string      `json:"target" mapstructure:"target"` // 目录或 s3://bucket/prefix
	Prefix string      `json:"prefix" mapstructure:"prefix"` // 文件名前缀
	MinIO  MinIOConfig `json:"minio" mapstructure:"minio"`
}

// MinIOConfig 对象存储连接配置,凭据通常来自环境变量
type MinIOConfig struct {
	Endpoint  string `json:"endpoint" mapstructure:"endpoint"`
	AccessKey string `json:"access_key" mapstructure:"access_key"`
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`
	UseSSL    bool   `json:"use_ssl" mapstructure:"use_ssl"`
}

// DefaultOutputPrefix 默认文件名前缀
const DefaultOutputPrefix = "rufus_results"

// DefaultOutputConfig 默认输出配置
func DefaultOutputConfig() OutputConfig {
	return OutputConfig{
		Format: string(FormatJSON),
		Target: "output",
		Prefix: DefaultOutputPrefix,
		MinIO: MinIOConfig{
			Endpoint: "localhost:9000",
		},
	}
}
