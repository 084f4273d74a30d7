package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyGoal          = errors.New("抓取目标描述不能为空")
	ErrNoSeeds            = errors.New("没有可抓取的种子URL")
	ErrBrowserUnavailable = errors.New("浏览器不可用")
)

// FetchError 网络或HTTP错误
type FetchError struct {
	URL        string
	StatusCode int
	Cause      error
}

// Error 实现error接口
func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("抓取失败 [%s] (状态码 %d): %v", e.URL, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("抓取失败 [%s]: %v", e.URL, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// ExtractionError 页面无法解析
type ExtractionError struct {
	URL   string
	Cause error
}

// Error 实现error接口
func (e *ExtractionError) Error() string {
	return fmt.Sprintf("内容提取失败 [%s]: %v", e.URL, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// ScoringError 评分后端不可用或返回了非法分数
type ScoringError struct {
	URL   string
	Cause error
}

// Error 实现error接口
func (e *ScoringError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("评分失败: %v", e.Cause)
	}
	return fmt.Sprintf("评分失败 [%s]: %v", e.URL, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *ScoringError) Unwrap() error {
	return e.Cause
}

// UnsupportedFormatError 不支持的输出编码
type UnsupportedFormatError struct {
	Format string
}

// Error 实现error接口
func (e *UnsupportedFormatError) Error() string {
	names := make([]string, len(SupportedFormats))
	for i, f := range SupportedFormats {
		names[i] = string(f)
	}
	return fmt.Sprintf("不支持的输出格式: %q (有效值: %s)", e.Format, strings.Join(names, ", "))
}

// PersistenceError 写入失败
type PersistenceError struct {
	Target string
	Cause  error
}

// Error 实现error接口
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("保存文档失败 [%s]: %v", e.Target, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// IsPageError 判断是否为可跳过的单页错误(抓取/提取/评分)
func IsPageError(err error) bool {
	var fe *FetchError
	var ee *ExtractionError
	var se *ScoringError
	return errors.As(err, &fe) || errors.As(err, &ee) || errors.As(err, &se)
}
