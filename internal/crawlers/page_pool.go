package crawlers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
)

var errPoolClosed = errors.New("页面池已关闭")

// PagePool 浏览器页面池
// 按需创建页面,数量受ResourceMonitor约束; 归还时重置为about:blank,失败则销毁
type PagePool struct {
	browser *rod.Browser
	monitor *ResourceMonitor

	// 空闲页面
	available chan *rod.Page

	// 全部存活页面
	pages map[*rod.Page]struct{}

	mu     sync.Mutex
	closed bool
}

// NewPagePool 创建页面池
func NewPagePool(browser *rod.Browser, monitor *ResourceMonitor) *PagePool {
	capacity := 1
	if monitor != nil {
		capacity = monitor.config.MaxSlots
	}
	return &PagePool{
		browser:   browser,
		monitor:   monitor,
		available: make(chan *rod.Page, capacity),
		pages:     make(map[*rod.Page]struct{}),
	}
}

// maxSize 当前允许的页面数量上限
func (pp *PagePool) maxSize() int {
	if pp.monitor == nil {
		return 1
	}
	return min(pp.monitor.CalculateMaxSlots(), cap(pp.available))
}

// AcquirePage 获取页面,达到上限时等待归还或有页面被销毁
func (pp *PagePool) AcquirePage(ctx context.Context) (*rod.Page, error) {
	for {
		select {
		case page := <-pp.available:
			return page, nil
		default:
		}

		page, err := pp.tryCreate()
		if err != nil || page != nil {
			return page, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case page := <-pp.available:
			return page, nil
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// tryCreate 未达上限且资源允许时创建新页面,否则返回nil
func (pp *PagePool) tryCreate() (*rod.Page, error) {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	if pp.closed {
		return nil, errPoolClosed
	}
	if len(pp.pages) >= pp.maxSize() {
		return nil, nil
	}
	if pp.monitor != nil && len(pp.pages) > 0 {
		if ok, reason := pp.monitor.CheckResourceAvailability(); !ok {
			log.Warn().Msgf("资源不足,等待空闲页面: %s", reason)
			return nil, nil
		}
	}

	page, err := pp.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("创建页面失败(浏览器可能已崩溃): %w", err)
	}
	pp.pages[page] = struct{}{}
	log.Debug().Msgf("创建新页面,当前页面数: %d", len(pp.pages))
	return page, nil
}

// ReleasePage 归还页面
func (pp *PagePool) ReleasePage(page *rod.Page) {
	if page == nil {
		return
	}

	pp.mu.Lock()
	closed := pp.closed
	pp.mu.Unlock()

	if closed {
		pp.destroyPage(page)
		return
	}

	if err := page.Navigate("about:blank"); err != nil {
		log.Debug().Err(err).Msg("重置页面失败,销毁页面")
		pp.destroyPage(page)
		return
	}

	select {
	case pp.available <- page:
	default:
		pp.destroyPage(page)
	}
}

func (pp *PagePool) destroyPage(page *rod.Page) {
	pp.mu.Lock()
	delete(pp.pages, page)
	pp.mu.Unlock()
	if err := page.Close(); err != nil {
		log.Debug().Err(err).Msg("关闭页面失败")
	}
}

// Size 当前页面数
func (pp *PagePool) Size() int {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return len(pp.pages)
}

// Close 关闭所有页面
func (pp *PagePool) Close() error {
	pp.mu.Lock()
	if pp.closed {
		pp.mu.Unlock()
		return nil
	}
	pp.closed = true
	pages := make([]*rod.Page, 0, len(pp.pages))
	for page := range pp.pages {
		pages = append(pages, page)
	}
	pp.pages = make(map[*rod.Page]struct{})
	pp.mu.Unlock()

	var errs []error
	for _, page := range pages {
		if err := page.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
