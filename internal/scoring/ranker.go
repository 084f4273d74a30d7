package scoring

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/RecoveryAshes/rufus/internal/models"
)

// LinkRanker 按探索优先级排列候选链接
type LinkRanker interface {
	Rank(ctx context.Context, content string, links []models.LinkCandidate, goal string) ([]models.NavigationSuggestion, error)
}

// LexicalRanker 以"锚文本 + URL词"与目标的词法相似度作为链接相关度
type LexicalRanker struct{}

// Rank 实现LinkRanker接口
// priority = relevance / (1 + depth), 按priority稳定降序
func (LexicalRanker) Rank(ctx context.Context, _ string, links []models.LinkCandidate, goal string) ([]models.NavigationSuggestion, error) {
	suggestions := make([]models.NavigationSuggestion, 0, len(links))
	if len(links) == 0 {
		return suggestions, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	goalTerms := Terms(goal)
	goalSet := make(map[string]struct{}, len(goalTerms))
	for _, t := range goalTerms {
		goalSet[t] = struct{}{}
	}

	for _, link := range links {
		terms := Terms(link.AnchorText + " " + urlWords(link.URL))
		relevance := Cosine(terms, goalTerms)

		suggestions = append(suggestions, models.NavigationSuggestion{
			URL:                 link.URL,
			AnchorText:          link.AnchorText,
			Depth:               link.Depth,
			RelevanceScore:      relevance,
			ExplorationPriority: models.ExplorationPriority(relevance, link.Depth),
			Rationale:           rationale(terms, goalSet),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].ExplorationPriority > suggestions[j].ExplorationPriority
	})
	return suggestions, nil
}

// urlWords 取主机(去掉www.)、路径和查询串作为可分词文本
func urlWords(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	return host + " " + u.Path + " " + u.RawQuery
}

func rationale(terms []string, goalSet map[string]struct{}) string {
	var matched []string
	for _, t := range distinct(terms) {
		if _, ok := goalSet[t]; ok {
			matched = append(matched, t)
		}
	}
	if len(matched) == 0 {
		return "无匹配词"
	}
	return fmt.Sprintf("匹配: %s", strings.Join(matched, ", "))
}
