package models

import "strings"

// OutputFormat 输出编码
type OutputFormat string

const (
	FormatJSON     OutputFormat = "json"
	FormatMarkdown OutputFormat = "markdown"
	FormatText     OutputFormat = "text"
)

// SupportedFormats 支持的输出编码
var SupportedFormats = []OutputFormat{FormatJSON, FormatMarkdown, FormatText}

// ParseOutputFormat 解析输出编码名称(不区分大小写)
func ParseOutputFormat(name string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	}
	return "", &UnsupportedFormatError{Format: name}
}

// Extension 文件扩展名
func (f OutputFormat) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatText:
		return "txt"
	default:
		return "json"
	}
}

// ContentType MIME类型
func (f OutputFormat) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}
