package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RecoveryAshes/rufus/internal/models"
	"github.com/RecoveryAshes/rufus/internal/utils"
	"golang.org/x/time/rate"
)

const judgePrompt = `You rate how well a web page satisfies a user's goal.
Reply with JSON only: {"relevance": <number between 0 and 1>, "summary": "<at most two sentences>"}.`

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// LLMJudge 调用OpenAI兼容的 /chat/completions 接口评分
// 并发安全,所有请求共享同一个限速器
type LLMJudge struct {
	baseURL         string
	apiKey          string
	model           string
	temperature     float64
	maxContentChars int

	client  *http.Client
	limiter *rate.Limiter
}

// NewLLMJudge 创建大模型评分器
func NewLLMJudge(cfg models.LLMConfig) (*LLMJudge, error) {
	if cfg.BaseURL == "" || cfg.Model == "" {
		return nil, errors.New("llm评分需要配置base_url和model")
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &LLMJudge{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:          cfg.APIKey,
		model:           cfg.Model,
		temperature:     cfg.Temperature,
		maxContentChars: cfg.MaxContentChars,
		client:          &http.Client{Timeout: timeout},
		limiter:         limiter,
	}, nil
}

// Judge 实现Judge接口
// 网络、HTTP状态或响应解析失败均返回 *models.ScoringError
func (j *LLMJudge) Judge(ctx context.Context, content, goal string) (Judgment, error) {
	if err := j.limiter.Wait(ctx); err != nil {
		return Judgment{}, &models.ScoringError{Cause: fmt.Errorf("等待限速器: %w", err)}
	}

	if j.maxContentChars > 0 {
		content = Truncate(content, j.maxContentChars)
	}

	reply, err := j.complete(ctx, []chatMessage{
		{Role: "system", Content: judgePrompt},
		{Role: "user", Content: fmt.Sprintf("Goal: %s\n\nPage content:\n%s", goal, content)},
	})
	if err != nil {
		return Judgment{}, &models.ScoringError{Cause: err}
	}

	judgment, err := parseJudgment(reply)
	if err != nil {
		return Judgment{}, &models.ScoringError{Cause: err}
	}
	return judgment, nil
}

// complete 发送非流式对话请求并返回首个回复
func (j *LLMJudge) complete(ctx context.Context, messages []chatMessage) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       j.model,
		Messages:    messages,
		Temperature: j.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if j.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+j.apiKey)
	}

	start := time.Now()
	resp, err := j.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("请求评分接口失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("读取评分响应失败: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("评分接口返回状态码 %d: %s", resp.StatusCode, Truncate(strings.TrimSpace(string(body)), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("解析评分响应失败: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("评分响应不包含choices")
	}

	utils.Debugf("LLM评分完成, 耗时 %v", time.Since(start))
	return parsed.Choices[0].Message.Content, nil
}

// parseJudgment 解析模型回复中的JSON对象,兼容```代码块包裹
func parseJudgment(reply string) (Judgment, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return Judgment{}, fmt.Errorf("回复中没有JSON对象: %q", Truncate(reply, 100))
	}

	var raw struct {
		Relevance *float64 `json:"relevance"`
		Summary   string   `json:"summary"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return Judgment{}, fmt.Errorf("解析评分JSON失败: %w", err)
	}
	if raw.Relevance == nil {
		return Judgment{}, errors.New("评分JSON缺少relevance字段")
	}

	return Judgment{
		Relevance: clamp(*raw.Relevance),
		Summary:   strings.TrimSpace(raw.Summary),
	}, nil
}
