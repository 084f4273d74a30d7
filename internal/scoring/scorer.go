package scoring

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/RecoveryAshes/rufus/internal/models"
)

// SummaryLength 无模型摘要时截取的字符数
const SummaryLength = 500

// Scorer 对(正文, 目标)评分
type Scorer interface {
	Score(ctx context.Context, content, goal string) (models.Score, error)
}

// CompositeScorer 综合词法相似度与Judge评分
// relevance = clamp((TF-IDF余弦 + judge) / 2)
type CompositeScorer struct {
	judge Judge
}

// NewCompositeScorer 创建评分器,judge为nil时使用OverlapJudge
func NewCompositeScorer(judge Judge) *CompositeScorer {
	if judge == nil {
		judge = OverlapJudge{}
	}
	return &CompositeScorer{judge: judge}
}

// Score 实现Scorer接口
func (s *CompositeScorer) Score(ctx context.Context, content, goal string) (models.Score, error) {
	if strings.TrimSpace(goal) == "" {
		return models.Score{}, &models.ScoringError{Cause: models.ErrEmptyGoal}
	}

	lexical := Cosine(Terms(content), Terms(goal))

	judgment, err := s.judge.Judge(ctx, content, goal)
	if err != nil {
		var scoringErr *models.ScoringError
		if errors.As(err, &scoringErr) {
			return models.Score{}, err
		}
		return models.Score{}, &models.ScoringError{Cause: err}
	}

	if math.IsNaN(lexical) || math.IsNaN(judgment.Relevance) {
		return models.Score{}, &models.ScoringError{Cause: errors.New("评分结果为NaN")}
	}

	summary := judgment.Summary
	if summary == "" {
		summary = Truncate(content, SummaryLength)
	}

	return models.Score{
		Relevance:          clamp((lexical + judgment.Relevance) / 2),
		TopicMatch:         lexical,
		InformationDensity: InformationDensity(content),
		Summary:            summary,
	}, nil
}

// ScorePage 对页面评分并附加到ScoredPage
// 错误统一为带URL的 *models.ScoringError
func ScorePage(ctx context.Context, scorer Scorer, page models.PageRecord, goal string) (*models.ScoredPage, error) {
	score, err := scorer.Score(ctx, page.Content, goal)
	if err != nil {
		var scoringErr *models.ScoringError
		if errors.As(err, &scoringErr) {
			return nil, &models.ScoringError{URL: page.URL, Cause: scoringErr.Cause}
		}
		return nil, &models.ScoringError{URL: page.URL, Cause: err}
	}

	if math.IsNaN(score.Relevance) {
		return nil, &models.ScoringError{URL: page.URL, Cause: errors.New("评分结果为NaN")}
	}

	return &models.ScoredPage{
		PageRecord:         page,
		RelevanceScore:     clamp(score.Relevance),
		TopicMatch:         score.TopicMatch,
		InformationDensity: score.InformationDensity,
		Summary:            score.Summary,
	}, nil
}

// Truncate 按字符(rune)截断
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
