package models

import (
	"fmt"
	"strings"
)

// CrawlMode 抓取模式
type CrawlMode string

const (
	ModeAuto    CrawlMode = "auto"    // 静态优先,疑似脚本渲染页面回退到浏览器
	ModeStatic  CrawlMode = "static"  // 仅静态
	ModeDynamic CrawlMode = "dynamic" // 仅浏览器渲染
)

// ParseCrawlMode 解析抓取模式,空字符串视为auto
func ParseCrawlMode(s string) (CrawlMode, error) {
	switch CrawlMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeStatic:
		return ModeStatic, nil
	case ModeDynamic:
		return ModeDynamic, nil
	}
	return "", fmt.Errorf("无效的抓取模式: %s (有效值: auto, static, dynamic)", s)
}

// 默认预算与阈值
const (
	DefaultMaxPages     = 100
	DefaultMinRelevance = 0.7
)

// CrawlTask 待访问的抓取任务,入队时创建,出队后只消费一次
type CrawlTask struct {
	URL       string `json:"url"`
	Depth     int    `json:"depth"`                // 距起始URL的跳数
	ParentURL string `json:"parent_url,omitempty"` // 发现该链接的页面
}

// TaskStats 单次抓取统计
type TaskStats struct {
	VisitedURLs   int     `json:"visited_urls"`   // 已访问URL数
	AcceptedPages int     `json:"accepted_pages"` // 达到阈值的页面数
	PrunedPages   int     `json:"pruned_pages"`   // 低于阈值被剪枝的页面数
	FailedURLs    int     `json:"failed_urls"`    // 抓取/提取/评分失败数
	EnqueuedLinks int     `json:"enqueued_links"` // 入队链接数
	Duration      float64 `json:"duration"`       // 总耗时(秒)
}

// Add 累加另一份统计
func (s *TaskStats) Add(other TaskStats) {
	s.VisitedURLs += other.VisitedURLs
	s.AcceptedPages += other.AcceptedPages
	s.PrunedPages += other.PrunedPages
	s.FailedURLs += other.FailedURLs
	s.EnqueuedLinks += other.EnqueuedLinks
	s.Duration += other.Duration
}

// CrawlConfig 抓取配置
type CrawlConfig struct {
	MaxPages         int       `json:"max_pages" mapstructure:"max_pages"`                   // 页面预算 (默认:100)
	MinRelevance     float64   `json:"min_relevance" mapstructure:"min_relevance"`           // 接受阈值 (默认:0.7)
	MaxDepth         int       `json:"max_depth" mapstructure:"max_depth"`                   // 最大深度,0表示不限制
	MaxWorkers       int       `json:"max_workers" mapstructure:"max_workers"`               // 多种子并发数 (默认:4)
	Mode             CrawlMode `json:"mode" mapstructure:"mode"`                             // 抓取模式 (默认:auto)
	WaitTime         int       `json:"wait_time" mapstructure:"wait_time"`                   // 请求超时/页面等待(秒) (默认:10)
	Headless         bool      `json:"headless" mapstructure:"headless"`                     // 无头浏览器 (默认:true)
	AllowCrossDomain bool      `json:"allow_cross_domain" mapstructure:"allow_cross_domain"` // 是否允许跨站点链接
	ShowProgress     bool      `json:"show_progress" mapstructure:"show_progress"`           // 是否显示进度条
}

// DefaultCrawlConfig 默认抓取配置
func DefaultCrawlConfig() CrawlConfig {
	return CrawlConfig{
		MaxPages:     DefaultMaxPages,
		MinRelevance: DefaultMinRelevance,
		MaxWorkers:   4,
		Mode:         ModeAuto,
		WaitTime:     10,
		Headless:     true,
	}
}

// Validate 验证配置
func (c *CrawlConfig) Validate() error {
	if c.MaxPages < 1 {
		return fmt.Errorf("页面预算必须大于0,当前值: %d", c.MaxPages)
	}
	if c.MinRelevance < 0.0 || c.MinRelevance > 1.0 {
		return fmt.Errorf("相关度阈值必须在0.0-1.0之间,当前值: %.2f", c.MinRelevance)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("最大深度不能为负数")
	}
	if c.MaxWorkers < 1 || c.MaxWorkers > 100 {
		return fmt.Errorf("并发数必须在1-100之间")
	}
	if c.WaitTime < 0 || c.WaitTime > 120 {
		return fmt.Errorf("等待时间必须在0-120秒之间")
	}
	if _, err := ParseCrawlMode(string(c.Mode)); err != nil {
		return err
	}
	return nil
}

// NewCrawlTask 创建种子任务
func NewCrawlTask(rawURL string) (*CrawlTask, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}
	return &CrawlTask{URL: rawURL, Depth: 0}, nil
}
