package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RecoveryAshes/rufus/internal/crawlers"
	"github.com/RecoveryAshes/rufus/internal/models"
	"github.com/RecoveryAshes/rufus/internal/scoring"
	"github.com/RecoveryAshes/rufus/internal/synthesizer"
	"github.com/RecoveryAshes/rufus/internal/utils"
)

// Client 抓取入口
// 组装Fetcher、评分后端、资源监控与导出目标,可并发调用
type Client struct {
	config      Config
	fetcher     crawlers.Fetcher
	closer      func() error
	backend     scoring.Backend
	monitor     *crawlers.ResourceMonitor
	sink        synthesizer.Sink
	synthesizer *synthesizer.Synthesizer
	cliHeaders  []string
}

// ClientOption 客户端选项
type ClientOption func(*Client)

// WithFetcher 使用自定义Fetcher
func WithFetcher(f crawlers.Fetcher) ClientOption {
	return func(c *Client) { c.fetcher = f }
}

// WithBackend 使用自定义评分后端
func WithBackend(b scoring.Backend) ClientOption {
	return func(c *Client) { c.backend = b }
}

// WithSink 使用自定义导出目标
func WithSink(s synthesizer.Sink) ClientOption {
	return func(c *Client) { c.sink = s }
}

// WithHeaders 追加命令行头部 ("Name: Value")
func WithHeaders(headers []string) ClientOption {
	return func(c *Client) { c.cliHeaders = headers }
}

// ScrapeOptions 单次抓取参数,零值使用配置中的值
// MinRelevance为nil时使用配置,可显式指定0
type ScrapeOptions struct {
	MaxPages     int
	MinRelevance *float64
	Format       string
}

// ScrapeResult 异步抓取结果
type ScrapeResult struct {
	Documents []models.Document
	Err       error
}

// NewClient 创建客户端
func NewClient(config *Config, opts ...ClientOption) (*Client, error) {
	if config == nil {
		return nil, errors.New("配置不能为空")
	}
	c := &Client{
		config:      *config,
		synthesizer: synthesizer.New(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.monitor = crawlers.NewResourceMonitor(crawlers.ResourceMonitorConfigFrom(c.config.Resource))
	c.monitor.StartMonitoring(2 * time.Second)

	if c.fetcher == nil {
		headers, err := NewHeaderManager(c.config.Fetch.Headers, c.config.Fetch.UserAgent, c.cliHeaders)
		if err != nil {
			c.monitor.StopMonitoring()
			return nil, err
		}
		if _, err := headers.GetHeaders(); err != nil {
			c.monitor.StopMonitoring()
			return nil, err
		}
		utils.Debugf("请求头部: %v", headers.GetSafeHeaders())

		fetcher, err := crawlers.NewFetcher(c.config.Crawl, c.config.Fetch, c.monitor, headers)
		if err != nil {
			c.monitor.StopMonitoring()
			return nil, fmt.Errorf("创建抓取器失败: %w", err)
		}
		c.fetcher = fetcher
		c.closer = fetcher.Close
	}

	if c.backend == nil {
		backend, err := scoring.NewBackendFromConfig(c.config.Scoring)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("创建评分后端失败: %w", err)
		}
		c.backend = backend
		if c.config.Scoring.Judge == models.JudgeLLM {
			llm := c.config.Scoring.LLM
			utils.Debugf("LLM评分: %s model=%s key=%s", llm.BaseURL, llm.Model, utils.RedactSecret(llm.APIKey))
		}
	}

	if c.sink == nil {
		sink, err := synthesizer.NewSink(c.config.Output.Target, c.config.Output.MinIO)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("创建导出目标失败: %w", err)
		}
		c.sink = sink
	}

	return c, nil
}

// resolve 合并单次参数与配置
func (c *Client) resolve(opts ScrapeOptions) (models.CrawlConfig, string, error) {
	crawl := c.config.Crawl
	if opts.MaxPages > 0 {
		crawl.MaxPages = opts.MaxPages
	}
	if opts.MinRelevance != nil {
		if r := *opts.MinRelevance; r < 0 || r > 1 {
			return crawl, "", fmt.Errorf("相关度阈值必须在0.0-1.0之间,当前值: %.2f", r)
		}
		crawl.MinRelevance = *opts.MinRelevance
	}
	format := opts.Format
	if format == "" {
		format = c.config.Output.Format
	}
	if _, err := models.ParseOutputFormat(format); err != nil {
		return crawl, "", err
	}
	return crawl, format, nil
}

// Scrape 抓取单个URL并返回文档,阻塞直到完成
func (c *Client) Scrape(ctx context.Context, url, instructions string, opts ScrapeOptions) ([]models.Document, error) {
	result := <-c.ScrapeAsync(ctx, url, instructions, opts)
	return result.Documents, result.Err
}

// ScrapeAsync 在后台抓取,通道恰好发送一个结果后关闭
func (c *Client) ScrapeAsync(ctx context.Context, url, instructions string, opts ScrapeOptions) <-chan ScrapeResult {
	ch := make(chan ScrapeResult, 1)
	go func() {
		defer close(ch)
		docs, err := c.scrape(ctx, url, instructions, opts)
		ch <- ScrapeResult{Documents: docs, Err: err}
	}()
	return ch
}

// scrape 单次抓取
// 只有单页错误时返回已找到的文档(可能为空)
func (c *Client) scrape(ctx context.Context, url, instructions string, opts ScrapeOptions) ([]models.Document, error) {
	crawl, format, err := c.resolve(opts)
	if err != nil {
		return nil, err
	}

	result, runErr := NewCrawler(crawl, c.fetcher, c.backend).Run(ctx, url, instructions)
	if result == nil {
		return nil, runErr
	}
	if seedErr := result.SeedError(); seedErr != nil {
		utils.Warnf("起始URL抓取失败: %v", seedErr)
	}

	docs, err := c.synthesizer.Synthesize(result.Pages, format)
	if err != nil {
		return nil, err
	}
	return docs, runErr
}

// ScrapeMultiple 并发抓取多个URL
// 单个种子的失败记录在对应的BatchResult中,不影响其他种子
func (c *Client) ScrapeMultiple(ctx context.Context, urls []string, instructions string, opts ScrapeOptions) (*BatchSummary, error) {
	crawl, format, err := c.resolve(opts)
	if err != nil {
		return nil, err
	}

	concurrency := min(crawl.MaxWorkers, c.monitor.CalculateMaxSlots())
	batch := NewBatchCrawler(func() *Crawler {
		return NewCrawler(crawl, c.fetcher, c.backend)
	}, c.synthesizer, concurrency)

	return batch.CrawlBatch(ctx, urls, instructions, format)
}

// Save 按配置的导出目标保存文档,format为空时使用配置中的格式
func (c *Client) Save(ctx context.Context, docs []models.Document, format string) (string, error) {
	if format == "" {
		format = c.config.Output.Format
	}
	return synthesizer.Save(ctx, docs, format, c.sink, c.config.Output.Prefix)
}

// Close 释放浏览器与后台采样
func (c *Client) Close() error {
	if c.monitor != nil {
		c.monitor.StopMonitoring()
	}
	if c.closer != nil {
		return c.closer()
	}
	return nil
}
