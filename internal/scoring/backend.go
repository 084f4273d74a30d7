// Package scoring 页面相关度评分与链接排序
//
// 相关度由两部分平均:
//   - 词法: NFKC+大小写折叠、去停用词、Snowball词干化后的TF-IDF余弦相似度
//   - 语义: Judge (默认OverlapJudge离线计算, 可选LLMJudge调用OpenAI兼容接口)
//
// 链接按 relevance/(1+depth) 排序,见 LexicalRanker。
package scoring

import "github.com/RecoveryAshes/rufus/internal/models"

// Backend 抓取循环所需的评分能力
type Backend interface {
	Scorer
	LinkRanker
}

type backend struct {
	*CompositeScorer
	LexicalRanker
}

// NewBackend 组合默认评分器与链接排序器
func NewBackend(judge Judge) Backend {
	return backend{
		CompositeScorer: NewCompositeScorer(judge),
	}
}

// NewBackendFromConfig 按评分配置构造Backend
func NewBackendFromConfig(cfg models.ScoringConfig) (Backend, error) {
	judge, err := NewJudge(cfg)
	if err != nil {
		return nil, err
	}
	return NewBackend(judge), nil
}
