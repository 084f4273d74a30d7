package core

import (
	"context"
	"fmt"
	"time"

	"github.com/RecoveryAshes/rufus/internal/models"
	"github.com/RecoveryAshes/rufus/internal/synthesizer"
	"github.com/RecoveryAshes/rufus/internal/utils"
	"golang.org/x/sync/errgroup"
)

// BatchCrawler 多种子并发抓取
// 每个种子使用独立的Crawler,单个种子失败不影响其他种子
type BatchCrawler struct {
	newCrawler  func() *Crawler
	synthesizer *synthesizer.Synthesizer
	concurrency int
}

// BatchResult 单个种子的结果
type BatchResult struct {
	URL       string
	Documents []models.Document
	Stats     models.TaskStats
	Failures  []models.PageFailure
	Err       error
	Duration  float64
}

// Success 种子是否成功完成
func (r BatchResult) Success() bool {
	return r.Err == nil
}

// BatchSummary 批量抓取摘要
type BatchSummary struct {
	TotalURLs     int
	SuccessCount  int
	FailCount     int
	TotalStats    models.TaskStats
	TotalDuration float64
	Results       []BatchResult // 与输入URL顺序一致
}

// Documents 按种子顺序展开所有文档
func (s *BatchSummary) Documents() []models.Document {
	docs := make([]models.Document, 0)
	for _, r := range s.Results {
		docs = append(docs, r.Documents...)
	}
	return docs
}

// NewBatchCrawler 创建批量抓取器
// newCrawler为每个种子创建独立的抓取循环
func NewBatchCrawler(newCrawler func() *Crawler, synth *synthesizer.Synthesizer, concurrency int) *BatchCrawler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchCrawler{
		newCrawler:  newCrawler,
		synthesizer: synth,
		concurrency: concurrency,
	}
}

// CrawlBatch 并发抓取URL列表
// format须在调用前验证; 单个种子的错误记录在对应BatchResult中
func (bc *BatchCrawler) CrawlBatch(ctx context.Context, urls []string, goal, format string) (*BatchSummary, error) {
	if len(urls) == 0 {
		return nil, models.ErrNoSeeds
	}

	utils.Infof("🚀 开始批量抓取: %d个URL (并发=%d)", len(urls), bc.concurrency)
	startTime := time.Now()

	results := make([]BatchResult, len(urls))
	g := new(errgroup.Group)
	g.SetLimit(bc.concurrency)

	for i, targetURL := range urls {
		g.Go(func() error {
			results[i] = bc.crawlSingleURL(ctx, targetURL, goal, format)
			return nil
		})
	}
	_ = g.Wait()

	summary := &BatchSummary{
		TotalURLs:     len(urls),
		Results:       results,
		TotalDuration: time.Since(startTime).Seconds(),
	}
	for _, r := range results {
		summary.TotalStats.Add(r.Stats)
		if r.Success() {
			summary.SuccessCount++
		} else {
			summary.FailCount++
		}
	}

	bc.printSummary(summary)
	return summary, ctx.Err()
}

// crawlSingleURL 抓取单个种子并生成文档
func (bc *BatchCrawler) crawlSingleURL(ctx context.Context, targetURL, goal, format string) BatchResult {
	result := BatchResult{URL: targetURL}
	startTime := time.Now()
	defer func() {
		result.Duration = time.Since(startTime).Seconds()
	}()

	crawlResult, err := bc.newCrawler().Run(ctx, targetURL, goal)
	if crawlResult != nil {
		result.Stats = crawlResult.Stats
		result.Failures = crawlResult.Failures
	}
	if err != nil && crawlResult == nil {
		result.Err = fmt.Errorf("抓取失败: %w", err)
		utils.Errorf("❌ [%s] %v", targetURL, result.Err)
		return result
	}

	docs, synthErr := bc.synthesizer.Synthesize(crawlResult.Pages, format)
	if synthErr != nil {
		result.Err = synthErr
		return result
	}
	result.Documents = docs

	switch {
	case err != nil:
		result.Err = fmt.Errorf("抓取被中断: %w", err)
	case len(docs) == 0 && crawlResult.SeedError() != nil:
		result.Err = crawlResult.SeedError()
	}
	if result.Err != nil {
		utils.Errorf("❌ [%s] %v", targetURL, result.Err)
	}
	return result
}

// printSummary 打印批量抓取摘要
func (bc *BatchCrawler) printSummary(summary *BatchSummary) {
	utils.Info("==================================================")
	utils.Info("📊 批量抓取摘要")
	utils.Info("==================================================")
	utils.Infof("总URL数: %d", summary.TotalURLs)
	utils.Infof("✅ 成功: %d", summary.SuccessCount)
	utils.Infof("❌ 失败: %d", summary.FailCount)
	utils.Infof("📄 文档数: %d", len(summary.Documents()))
	utils.Infof("🔗 已访问: %d", summary.TotalStats.VisitedURLs)
	utils.Infof("⏱️  总耗时: %.2f秒", summary.TotalDuration)
	utils.Info("==================================================")

	if summary.FailCount > 0 {
		utils.Warn("失败的URL:")
		for _, result := range summary.Results {
			if !result.Success() {
				utils.Warnf("  - %s: %v", result.URL, result.Err)
			}
		}
	}
}
