package crawlers

import (
	"context"
	"fmt"

	"github.com/RecoveryAshes/rufus/internal/models"
	"github.com/RecoveryAshes/rufus/internal/utils"
)

// Fetcher 抓取单个URL并返回提取后的页面
// 网络/HTTP错误返回 *models.FetchError, 无法解析返回 *models.ExtractionError
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*models.PageRecord, error)
}

// FetchCloser 持有外部资源(浏览器)的Fetcher
type FetchCloser interface {
	Fetcher
	Close() error
}

// NewFetcher 按抓取模式构造Fetcher
func NewFetcher(
	crawl models.CrawlConfig,
	fetch models.FetchConfig,
	monitor *ResourceMonitor,
	headerProvider models.HeaderProvider,
) (FetchCloser, error) {
	mode, err := models.ParseCrawlMode(string(crawl.Mode))
	if err != nil {
		return nil, err
	}

	switch mode {
	case models.ModeStatic:
		return NewStaticFetcher(crawl, fetch, headerProvider)
	case models.ModeDynamic:
		return NewDynamicFetcher(crawl, fetch, monitor, headerProvider), nil
	default:
		static, err := NewStaticFetcher(crawl, fetch, headerProvider)
		if err != nil {
			return nil, err
		}
		dynamic := NewDynamicFetcher(crawl, fetch, monitor, headerProvider)
		return NewHybridFetcher(static, dynamic, fetch.MinContentLength), nil
	}
}

// HybridFetcher 静态优先; 页面含脚本且正文过短时改用浏览器渲染
type HybridFetcher struct {
	static           *StaticFetcher
	dynamic          FetchCloser
	minContentLength int
}

// NewHybridFetcher 创建混合抓取器
func NewHybridFetcher(static *StaticFetcher, dynamic FetchCloser, minContentLength int) *HybridFetcher {
	return &HybridFetcher{
		static:           static,
		dynamic:          dynamic,
		minContentLength: minContentLength,
	}
}

// Fetch 实现Fetcher接口
func (h *HybridFetcher) Fetch(ctx context.Context, rawURL string) (*models.PageRecord, error) {
	record, hasScripts, err := h.static.fetchPage(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if h.dynamic == nil || !NeedsRendering(hasScripts, record.Content, h.minContentLength) {
		return record, nil
	}

	utils.Debugf("疑似脚本渲染页面,切换浏览器抓取: %s (正文%d字符)", rawURL, len(record.Content))
	rendered, err := h.dynamic.Fetch(ctx, rawURL)
	if err != nil {
		utils.Warnf("浏览器渲染失败,使用静态结果 [%s]: %v", rawURL, err)
		return record, nil
	}
	return rendered, nil
}

// Close 释放浏览器
func (h *HybridFetcher) Close() error {
	if h.dynamic == nil {
		return nil
	}
	if err := h.dynamic.Close(); err != nil {
		return fmt.Errorf("关闭动态抓取器失败: %w", err)
	}
	return nil
}

// NeedsRendering 判断静态结果是否需要浏览器重新渲染
func NeedsRendering(hasScripts bool, content string, minContentLength int) bool {
	return hasScripts && len(content) < minContentLength
}
