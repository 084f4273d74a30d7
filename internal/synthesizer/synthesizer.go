// Package synthesizer 去重、结构化并导出抓取结果
//
// 流程: 校验输出编码 -> 按内容SHA-256去重(先到先得) -> 生成Document ->
// 编码为json/markdown/text -> 写入Sink(本地目录或MinIO)。
package synthesizer

import (
	"time"

	"github.com/RecoveryAshes/rufus/internal/models"
	"github.com/RecoveryAshes/rufus/internal/utils"
)

// Synthesizer 文档合成器
type Synthesizer struct {
	now func() time.Time
}

// New 创建合成器
func New() *Synthesizer {
	return &Synthesizer{now: time.Now}
}

// Synthesize 去重并生成文档
// 编码名称无效时在任何处理之前返回 *models.UnsupportedFormatError
func (s *Synthesizer) Synthesize(pages []models.ScoredPage, format string) ([]models.Document, error) {
	if _, err := models.ParseOutputFormat(format); err != nil {
		return nil, err
	}

	unique := Deduplicate(pages)
	if dropped := len(pages) - len(unique); dropped > 0 {
		utils.Debugf("去重: 丢弃 %d 个重复页面", dropped)
	}

	docs := make([]models.Document, 0, len(unique))
	for _, page := range unique {
		docs = append(docs, models.NewDocument(page, s.now()))
	}
	return docs, nil
}

// Deduplicate 按内容哈希去重,保留首次出现的页面
func Deduplicate(pages []models.ScoredPage) []models.ScoredPage {
	seen := make(map[string]struct{}, len(pages))
	unique := make([]models.ScoredPage, 0, len(pages))
	for _, page := range pages {
		hash := models.ContentHash(page.Content)
		if _, ok := seen[hash]; ok {
			continue
		}
		seen[hash] = struct{}{}
		unique = append(unique, page)
	}
	return unique
}
