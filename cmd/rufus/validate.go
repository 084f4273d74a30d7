package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/RecoveryAshes/rufus/internal/models"
)

// ValidateFlags 验证命令行标志
// 零值表示未指定,由配置文件提供
func ValidateFlags(
	targetURL string,
	urlFile string,
	instructions string,
	maxPages int,
	minRelevance float64,
	maxDepth int,
	waitTime int,
	maxWorkers int,
	mode string,
	format string,
) error {
	if targetURL != "" && urlFile != "" {
		return fmt.Errorf("--url 与 --url-file 不能同时使用")
	}
	if targetURL != "" {
		normalized, err := NormalizeURL(targetURL)
		if err != nil {
			return fmt.Errorf("无效的目标URL: %w", err)
		}
		if err := models.ValidateURL(normalized); err != nil {
			return fmt.Errorf("无效的目标URL: %w", err)
		}
	}

	if strings.TrimSpace(instructions) == "" {
		return fmt.Errorf("必须通过 -i/--instructions 提供抓取目标: %w", models.ErrEmptyGoal)
	}

	if maxPages < 0 {
		return fmt.Errorf("页面预算不能为负数,当前值: %d", maxPages)
	}
	if minRelevance < 0.0 || minRelevance > 1.0 {
		return fmt.Errorf("相关度阈值必须在0.0-1.0之间,当前值: %.2f", minRelevance)
	}
	if maxDepth < 0 {
		return fmt.Errorf("最大深度不能为负数,当前值: %d", maxDepth)
	}
	if waitTime < 0 || waitTime > 120 {
		return fmt.Errorf("等待时间必须在0-120秒之间,当前值: %d", waitTime)
	}
	if maxWorkers < 0 || maxWorkers > 100 {
		return fmt.Errorf("并发数必须在1-100之间,当前值: %d", maxWorkers)
	}

	if mode != "" {
		if _, err := models.ParseCrawlMode(mode); err != nil {
			return err
		}
	}
	if format != "" {
		if _, err := models.ParseOutputFormat(format); err != nil {
			return err
		}
	}

	return nil
}

// NormalizeURL 规范化URL
// 没有协议时默认使用https
func NormalizeURL(urlStr string) (string, error) {
	urlStr = strings.TrimSpace(urlStr)
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}

	if parsed.Scheme == "" {
		parsed, err = url.Parse("https://" + urlStr)
		if err != nil {
			return "", err
		}
	}

	return parsed.String(), nil
}
