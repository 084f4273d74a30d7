package utils

import (
	"io"
	"os"
	"sort"
	"time"

	"github.com/RecoveryAshes/rufus/internal/models"
	"github.com/schollz/progressbar/v3"
)

// Reporter 抓取进度与摘要输出
type Reporter struct {
	seed     string
	bar      *progressbar.ProgressBar
	visited  int
	accepted int
}

// NewReporter 创建报告器,showProgress为false时不显示进度条
func NewReporter(seed string, maxPages int, showProgress bool) *Reporter {
	r := &Reporter{seed: seed}
	if showProgress {
		r.bar = NewProgressBar(maxPages, "🕷️  抓取中", os.Stderr)
	}
	return r
}

// PageDone 记录一个已访问页面
func (r *Reporter) PageDone(accepted bool) {
	r.visited++
	if accepted {
		r.accepted++
	}
	if r.bar == nil {
		return
	}
	if accepted {
		r.bar.Describe("🕷️  抓取中 ✅")
	} else {
		r.bar.Describe("🕷️  抓取中")
	}
	_ = r.bar.Add(1)
}

// Counts 已记录的访问数与接受数
func (r *Reporter) Counts() (visited, accepted int) {
	return r.visited, r.accepted
}

// Finish 结束进度条
func (r *Reporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// PrintCrawlSummary 输出单次抓取摘要
func (r *Reporter) PrintCrawlSummary(stats models.TaskStats, failures []models.PageFailure) {
	Info("==================================================")
	Infof("📊 抓取摘要: %s", r.seed)
	Info("==================================================")
	Infof("🔗 已访问: %d", stats.VisitedURLs)
	Infof("✅ 接受: %d", stats.AcceptedPages)
	Infof("✂️  剪枝: %d", stats.PrunedPages)
	Infof("❌ 失败: %d", stats.FailedURLs)
	Infof("➕ 入队链接: %d", stats.EnqueuedLinks)
	Infof("⏱️  耗时: %.2f秒", stats.Duration)

	if len(failures) == 0 {
		return
	}
	Warn("失败的URL:")
	sorted := make([]models.PageFailure, len(failures))
	copy(sorted, failures)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Depth < sorted[j].Depth })
	for _, f := range sorted {
		Warnf("  - [深度%d] %s: %v", f.Depth, f.URL, f.Err)
	}
}

// NewProgressBar 创建进度条
func NewProgressBar(max int, description string, out io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
