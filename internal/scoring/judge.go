package scoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/RecoveryAshes/rufus/internal/models"
)

// Judgment 语义评分结果
type Judgment struct {
	Relevance float64
	Summary   string // 可为空
}

// Judge 评估内容对目标的满足程度,返回[0,1]的相关度
type Judge interface {
	Judge(ctx context.Context, content, goal string) (Judgment, error)
}

// OverlapJudge 离线评分: 目标词干在正文中出现的比例
type OverlapJudge struct{}

// Judge 实现Judge接口
func (OverlapJudge) Judge(ctx context.Context, content, goal string) (Judgment, error) {
	if err := ctx.Err(); err != nil {
		return Judgment{}, err
	}

	goalTerms := distinct(Terms(goal))
	if len(goalTerms) == 0 {
		return Judgment{}, nil
	}

	present := make(map[string]struct{})
	for _, t := range Terms(content) {
		present[t] = struct{}{}
	}

	hits := 0
	for _, t := range goalTerms {
		if _, ok := present[t]; ok {
			hits++
		}
	}
	return Judgment{Relevance: float64(hits) / float64(len(goalTerms))}, nil
}

// distinct 去重并保持首次出现顺序
func distinct(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// NewJudge 按配置选择评分后端
func NewJudge(cfg models.ScoringConfig) (Judge, error) {
	switch models.JudgeKind(strings.ToLower(string(cfg.Judge))) {
	case models.JudgeOverlap, "":
		return OverlapJudge{}, nil
	case models.JudgeLLM:
		judge, err := NewLLMJudge(cfg.LLM)
		if err != nil {
			return nil, err
		}
		return judge, nil
	default:
		return nil, fmt.Errorf("无效的评分后端: %s", cfg.Judge)
	}
}
