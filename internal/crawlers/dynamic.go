package crawlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RecoveryAshes/rufus/internal/models"
	"github.com/RecoveryAshes/rufus/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DynamicFetcher 浏览器渲染抓取器(使用Rod)
// 浏览器在首次抓取时启动,多个抓取循环共享同一浏览器和页面池
type DynamicFetcher struct {
	crawl          models.CrawlConfig
	fetch          models.FetchConfig
	extractor      *Extractor
	headerProvider models.HeaderProvider
	monitor        *ResourceMonitor

	launcher *launcher.Launcher
	browser  *rod.Browser
	pool     *PagePool
	mu       sync.Mutex
}

// NewDynamicFetcher 创建动态抓取器
func NewDynamicFetcher(crawl models.CrawlConfig, fetch models.FetchConfig, monitor *ResourceMonitor, headerProvider models.HeaderProvider) *DynamicFetcher {
	return &DynamicFetcher{
		crawl:          crawl,
		fetch:          fetch,
		extractor:      NewExtractor(),
		headerProvider: headerProvider,
		monitor:        monitor,
	}
}

// ensureBrowser 按需启动浏览器
func (df *DynamicFetcher) ensureBrowser() error {
	df.mu.Lock()
	defer df.mu.Unlock()

	if df.browser != nil {
		return nil
	}

	l := launcher.New().Headless(df.crawl.Headless)
	if df.fetch.InsecureSkipVerify {
		l = l.Set("ignore-certificate-errors")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("启动浏览器失败: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("连接浏览器失败: %w", err)
	}

	df.launcher = l
	df.browser = browser
	df.pool = NewPagePool(browser, df.monitor)
	utils.Debugf("浏览器已启动: %s", controlURL)
	return nil
}

// Fetch 实现Fetcher接口
func (df *DynamicFetcher) Fetch(ctx context.Context, rawURL string) (*models.PageRecord, error) {
	if err := df.ensureBrowser(); err != nil {
		return nil, &models.FetchError{URL: rawURL, Cause: fmt.Errorf("%w: %v", models.ErrBrowserUnavailable, err)}
	}

	page, err := df.pool.AcquirePage(ctx)
	if err != nil {
		return nil, &models.FetchError{URL: rawURL, Cause: err}
	}
	defer df.pool.ReleasePage(page)

	timeout := time.Duration(df.crawl.WaitTime) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	p := page.Context(ctx).Timeout(timeout)
	defer p.CancelTimeout()

	if cleanup, err := df.setHeaders(p); err != nil {
		utils.Warnf("设置浏览器请求头失败 [%s]: %v", rawURL, err)
	} else if cleanup != nil {
		defer cleanup()
	}

	if err := p.Navigate(rawURL); err != nil {
		return nil, &models.FetchError{URL: rawURL, Cause: fmt.Errorf("导航失败: %w", err)}
	}
	if err := p.WaitLoad(); err != nil {
		return nil, &models.FetchError{URL: rawURL, Cause: fmt.Errorf("等待页面加载失败: %w", err)}
	}

	// 留出脚本渲染时间
	if wait := time.Duration(df.fetch.RenderWaitMs) * time.Millisecond; wait > 0 {
		select {
		case <-ctx.Done():
			return nil, &models.FetchError{URL: rawURL, Cause: ctx.Err()}
		case <-time.After(wait):
		}
	}

	html, err := p.HTML()
	if err != nil {
		return nil, &models.FetchError{URL: rawURL, Cause: fmt.Errorf("读取渲染结果失败: %w", err)}
	}

	finalURL := rawURL
	if info, err := p.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}

	record, err := df.extractor.Extract(finalURL, []byte(html))
	if err != nil {
		return nil, err
	}
	record.URL = rawURL
	record.Rendered = true

	utils.Debugf("浏览器渲染完成: %s", rawURL)
	return record, nil
}

// setHeaders 设置User-Agent和自定义请求头
func (df *DynamicFetcher) setHeaders(p *rod.Page) (func(), error) {
	if df.fetch.UserAgent != "" {
		if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: df.fetch.UserAgent}); err != nil {
			return nil, err
		}
	}

	var dict []string
	if df.headerProvider == nil {
		for name, value := range df.fetch.Headers {
			dict = append(dict, name, value)
		}
	} else {
		headers, err := df.headerProvider.GetHeaders()
		if err != nil {
			return nil, err
		}
		for name, values := range headers {
			// 浏览器自行协商编码与UA
			if name == "Accept-Encoding" || name == "User-Agent" || len(values) == 0 {
				continue
			}
			dict = append(dict, name, values[0])
		}
	}
	if len(dict) == 0 {
		return nil, nil
	}
	return p.SetExtraHeaders(dict)
}

// Close 关闭页面池和浏览器
func (df *DynamicFetcher) Close() error {
	df.mu.Lock()
	defer df.mu.Unlock()

	if df.browser == nil {
		return nil
	}

	var poolErr error
	if df.pool != nil {
		poolErr = df.pool.Close()
	}
	err := df.browser.Close()
	if df.launcher != nil {
		df.launcher.Kill()
	}
	df.browser = nil
	df.pool = nil
	utils.Debugf("浏览器已关闭")

	if err != nil {
		return fmt.Errorf("关闭浏览器失败: %w", err)
	}
	return poolErr
}
