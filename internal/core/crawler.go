package core

import (
	"context"
	"strings"
	"time"

	"github.com/RecoveryAshes/rufus/internal/crawlers"
	"github.com/RecoveryAshes/rufus/internal/models"
	"github.com/RecoveryAshes/rufus/internal/scoring"
	"github.com/RecoveryAshes/rufus/internal/utils"
	"github.com/rs/zerolog"
)

// Crawler 目标导向的广度优先抓取循环
// 每次Run使用独立的Frontier,Fetcher与Backend可在多个Crawler间共享
type Crawler struct {
	config  models.CrawlConfig
	fetcher crawlers.Fetcher
	backend scoring.Backend
	log     zerolog.Logger
}

// CrawlResult 单次抓取结果
type CrawlResult struct {
	RunID    string
	Seed     string
	Pages    []models.ScoredPage // 按接受顺序
	Stats    models.TaskStats
	Failures []models.PageFailure
}

// SeedError 起始URL本身抓取失败时返回对应错误
func (r *CrawlResult) SeedError() error {
	for _, f := range r.Failures {
		if f.Depth == 0 {
			return f.Err
		}
	}
	return nil
}

// NewCrawler 创建抓取器
// MaxPages不大于0时使用默认值, MinRelevance超出[0,1]时使用默认值
// MinRelevance为0表示接受所有成功评分的页面
func NewCrawler(config models.CrawlConfig, fetcher crawlers.Fetcher, backend scoring.Backend) *Crawler {
	if config.MaxPages <= 0 {
		config.MaxPages = models.DefaultMaxPages
	}
	if config.MinRelevance < 0 || config.MinRelevance > 1 {
		config.MinRelevance = models.DefaultMinRelevance
	}
	return &Crawler{
		config:  config,
		fetcher: fetcher,
		backend: backend,
		log:     utils.Component("crawler"),
	}
}

// Run 从startURL开始抓取,返回达到相关度阈值的页面
// 执行流程:
//  1. 出队最早入队的任务,已访问则跳过
//  2. 抓取并评分,单页错误记录后跳过
//  3. 达到阈值的页面对出链排序,相关度超过阈值的链接入队
//  4. 低于阈值的页面被剪枝,不展开出链
//
// ctx取消时返回已接受的页面和ctx.Err()
func (c *Crawler) Run(ctx context.Context, startURL, goal string) (*CrawlResult, error) {
	if strings.TrimSpace(goal) == "" {
		return nil, models.ErrEmptyGoal
	}
	seed, err := models.NewCrawlTask(startURL)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	result := &CrawlResult{
		RunID: models.NewRunID(),
		Seed:  startURL,
		Pages: make([]models.ScoredPage, 0),
	}

	frontier := crawlers.NewFrontier()
	if _, err := frontier.Push(*seed); err != nil {
		return nil, err
	}

	c.log.Info().
		Str("run_id", result.RunID).
		Str("seed", startURL).
		Int("max_pages", c.config.MaxPages).
		Float64("min_relevance", c.config.MinRelevance).
		Msg("🚀 开始抓取")
	reporter := utils.NewReporter(startURL, c.config.MaxPages, c.config.ShowProgress)

	var runErr error
	for frontier.VisitedCount() < c.config.MaxPages {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		task, ok := frontier.Pop()
		if !ok {
			break
		}

		first, err := frontier.MarkVisited(task.URL)
		if err != nil || !first {
			continue
		}
		result.Stats.VisitedURLs++

		accepted, err := c.visit(ctx, frontier, task, goal, result)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				runErr = ctxErr
				reporter.PageDone(accepted)
				break
			}
			c.log.Warn().Err(err).Str("url", task.URL).Int("depth", task.Depth).Msg("跳过页面")
			result.Failures = append(result.Failures, models.PageFailure{URL: task.URL, Depth: task.Depth, Err: err})
			result.Stats.FailedURLs++
		}
		reporter.PageDone(accepted)
	}
	reporter.Finish()
	shown, shownAccepted := reporter.Counts()
	c.log.Debug().Str("run_id", result.RunID).Int("visited", shown).Int("accepted", shownAccepted).Msg("进度统计")

	result.Stats.Duration = time.Since(startTime).Seconds()
	reporter.PrintCrawlSummary(result.Stats, result.Failures)

	if runErr != nil {
		utils.Warnf("抓取被中断: %v (已接受 %d 个页面)", runErr, len(result.Pages))
	}
	return result, runErr
}

// visit 处理单个任务,返回页面是否被接受
// 返回的错误为单页错误(抓取/提取/评分)
func (c *Crawler) visit(ctx context.Context, frontier *crawlers.Frontier, task models.CrawlTask, goal string, result *CrawlResult) (bool, error) {
	utils.Debugf("抓取 [深度%d]: %s", task.Depth, task.URL)

	record, err := c.fetcher.Fetch(ctx, task.URL)
	if err != nil {
		return false, err
	}
	page := *record
	page.Depth = task.Depth
	page.ParentURL = task.ParentURL

	scored, err := scoring.ScorePage(ctx, c.backend, page, goal)
	if err != nil {
		return false, err
	}

	if scored.RelevanceScore < c.config.MinRelevance {
		c.log.Debug().
			Str("url", task.URL).
			Int("depth", task.Depth).
			Float64("relevance", scored.RelevanceScore).
			Msg("✂️  剪枝")
		result.Stats.PrunedPages++
		return false, nil
	}

	c.log.Info().
		Str("url", task.URL).
		Int("depth", task.Depth).
		Float64("relevance", scored.RelevanceScore).
		Msg("✅ 接受")
	result.Pages = append(result.Pages, *scored)
	result.Stats.AcceptedPages++

	candidates := c.candidates(page, result.Seed)
	if len(candidates) == 0 {
		return true, nil
	}

	suggestions, err := c.backend.Rank(ctx, page.Content, candidates, goal)
	if err != nil {
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		utils.Warnf("链接排序失败,不展开 [%s]: %v", task.URL, err)
		return true, nil
	}

	for _, s := range suggestions {
		if s.RelevanceScore <= c.config.MinRelevance {
			continue
		}
		added, err := frontier.Push(models.CrawlTask{
			URL:       s.URL,
			Depth:     task.Depth + 1,
			ParentURL: task.URL,
		})
		if err != nil {
			utils.Debugf("忽略链接 %s: %v", s.URL, err)
			continue
		}
		if added {
			result.Stats.EnqueuedLinks++
		}
	}
	return true, nil
}

// candidates 由页面出链构造候选链接
// 跨站点与超过最大深度的链接被过滤
func (c *Crawler) candidates(page models.PageRecord, seed string) []models.LinkCandidate {
	depth := page.Depth + 1
	if c.config.MaxDepth > 0 && depth > c.config.MaxDepth {
		return nil
	}

	out := make([]models.LinkCandidate, 0, len(page.Links))
	for _, link := range page.Links {
		if !c.config.AllowCrossDomain && !crawlers.SameSite(seed, link.Href) {
			continue
		}
		out = append(out, models.LinkCandidate{
			URL:        link.Href,
			AnchorText: link.AnchorText,
			Depth:      depth,
		})
	}
	return out
}
