package crawlers

import (
	"fmt"
	"sync"

	"github.com/RecoveryAshes/rufus/internal/models"
)

// Frontier 待访问任务队列(FIFO)与已访问集合
// 职责: 去重入队、按入队顺序出队、记录visited; 同一时刻一个规范URL
// 只会出现在pending或visited其中之一
type Frontier struct {
	// 待处理任务,queue[head:]为有效部分
	queue []models.CrawlTask
	head  int

	// 排队中的规范URL
	pending map[string]struct{}

	// 已访问的规范URL
	visited map[string]struct{}

	// 保护以上字段,便于进度上报并发读取
	mu sync.RWMutex
}

// NewFrontier 创建空队列
func NewFrontier() *Frontier {
	return &Frontier{
		queue:   make([]models.CrawlTask, 0, 64),
		pending: make(map[string]struct{}),
		visited: make(map[string]struct{}),
	}
}

// Push 添加任务
// URL无法规范化、已访问或已在队列中时返回false
func (f *Frontier) Push(task models.CrawlTask) (bool, error) {
	key, err := CanonicalURL(task.URL)
	if err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.visited[key]; ok {
		return false, nil
	}
	if _, ok := f.pending[key]; ok {
		return false, nil
	}

	f.pending[key] = struct{}{}
	f.queue = append(f.queue, task)
	return true, nil
}

// Pop 取出最早入队的任务
func (f *Frontier) Pop() (models.CrawlTask, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.head >= len(f.queue) {
		return models.CrawlTask{}, false
	}

	task := f.queue[f.head]
	f.queue[f.head] = models.CrawlTask{}
	f.head++

	// 队列耗尽时回收底层数组
	if f.head == len(f.queue) {
		f.queue = f.queue[:0]
		f.head = 0
	}

	if key, err := CanonicalURL(task.URL); err == nil {
		delete(f.pending, key)
	}
	return task, true
}

// MarkVisited 标记URL为已访问,首次标记返回true
func (f *Frontier) MarkVisited(rawURL string) (bool, error) {
	key, err := CanonicalURL(rawURL)
	if err != nil {
		return false, fmt.Errorf("无法标记URL: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.visited[key]; ok {
		return false, nil
	}
	delete(f.pending, key)
	f.visited[key] = struct{}{}
	return true, nil
}

// IsVisited 检查URL是否已访问
func (f *Frontier) IsVisited(rawURL string) bool {
	key, err := CanonicalURL(rawURL)
	if err != nil {
		return false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.visited[key]
	return ok
}

// IsPending 检查URL是否在队列中
func (f *Frontier) IsPending(rawURL string) bool {
	key, err := CanonicalURL(rawURL)
	if err != nil {
		return false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.pending[key]
	return ok
}

// Len 待处理任务数
func (f *Frontier) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.queue) - f.head
}

// VisitedCount 已访问URL数
func (f *Frontier) VisitedCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.visited)
}
