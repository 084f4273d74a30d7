package models

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"有效的HTTP URL", "http://example.com", false},
		{"有效的HTTPS URL", "https://example.com", false},
		{"带路径的URL", "https://example.com/path/to/resource", false},
		{"无效的协议", "ftp://example.com", true},
		{"无效的URL", "not a url", true},
		{"空URL", "", true},
		{"无协议", "example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCrawlConfig_Validate(t *testing.T) {
	valid := DefaultCrawlConfig()

	tests := []struct {
		name    string
		mutate  func(c *CrawlConfig)
		wantErr bool
	}{
		{"默认配置", func(c *CrawlConfig) {}, false},
		{"页面预算为0", func(c *CrawlConfig) { c.MaxPages = 0 }, true},
		{"阈值过大", func(c *CrawlConfig) { c.MinRelevance = 1.5 }, true},
		{"阈值为负", func(c *CrawlConfig) { c.MinRelevance = -0.1 }, true},
		{"阈值边界1.0", func(c *CrawlConfig) { c.MinRelevance = 1.0 }, false},
		{"负深度", func(c *CrawlConfig) { c.MaxDepth = -1 }, true},
		{"并发数为0", func(c *CrawlConfig) { c.MaxWorkers = 0 }, true},
		{"无效模式", func(c *CrawlConfig) { c.Mode = "turbo" }, true},
		{"空模式视为auto", func(c *CrawlConfig) { c.Mode = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid
			tt.mutate(&config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewCrawlTask(t *testing.T) {
	task, err := NewCrawlTask("https://Example.com/docs")
	if err != nil {
		t.Fatalf("NewCrawlTask() error = %v", err)
	}
	if task.Depth != 0 {
		t.Errorf("种子深度 = %d, want 0", task.Depth)
	}
	if task.URL != "https://Example.com/docs" || task.ParentURL != "" {
		t.Errorf("种子任务 = %+v, 应原样保留URL且无父页面", task)
	}

	if _, err := NewCrawlTask("mailto:someone@example.com"); err == nil {
		t.Error("非HTTP种子应该返回错误")
	}
}

func TestExplorationPriority_DepthMonotonic(t *testing.T) {
	for _, r := range []float64{0.1, 0.5, 0.8, 1.0} {
		p0 := ExplorationPriority(r, 0)
		p1 := ExplorationPriority(r, 1)
		p2 := ExplorationPriority(r, 2)
		if !(p0 > p1 && p1 > p2) {
			t.Errorf("relevance=%.1f: 优先级应随深度递减, got %v %v %v", r, p0, p1, p2)
		}
	}
	if got := ExplorationPriority(0.8, 1); got != 0.4 {
		t.Errorf("ExplorationPriority(0.8, 1) = %v, want 0.4", got)
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"markdown", FormatMarkdown, false},
		{"md", FormatMarkdown, false},
		{"text", FormatText, false},
		{" txt ", FormatText, false},
		{"xml", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOutputFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				var ufe *UnsupportedFormatError
				if !errors.As(err, &ufe) {
					t.Errorf("错误类型应为UnsupportedFormatError, got %T", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseOutputFormat(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewDocument(t *testing.T) {
	page := ScoredPage{
		PageRecord: PageRecord{
			URL:       "https://example.com/a",
			Title:     "A",
			Content:   "hello world",
			Depth:     2,
			ParentURL: "https://example.com/",
		},
		RelevanceScore: 0.9,
		TopicMatch:     0.8,
	}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CST", 8*3600))

	doc := NewDocument(page, at)

	if doc.ID == "" {
		t.Error("文档ID不应为空")
	}
	if doc.Timestamp.Location() != time.UTC {
		t.Error("时间戳应为UTC")
	}
	if doc.Metadata.Source != SourceWeb {
		t.Errorf("Source = %q, want %q", doc.Metadata.Source, SourceWeb)
	}
	if doc.Metadata.CrawlerMetadata.Depth != 2 || doc.Metadata.CrawlerMetadata.ParentURL != "https://example.com/" {
		t.Errorf("抓取元数据错误: %+v", doc.Metadata.CrawlerMetadata)
	}
	if doc.Metadata.ExtractedData == nil {
		t.Error("ExtractedData应为空map而不是nil")
	}
	if doc.Metadata.ContentHash != ContentHash("hello world") {
		t.Error("内容哈希不一致")
	}
}

func TestIsPageError(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"抓取错误", &FetchError{URL: "u", Cause: cause}, true},
		{"包装的评分错误", fmt.Errorf("wrap: %w", &ScoringError{Cause: cause}), true},
		{"提取错误", &ExtractionError{URL: "u", Cause: cause}, true},
		{"格式错误", &UnsupportedFormatError{Format: "xml"}, false},
		{"持久化错误", &PersistenceError{Target: "t", Cause: cause}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPageError(tt.err); got != tt.want {
				t.Errorf("IsPageError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCliHeaders_Parse(t *testing.T) {
	h, err := CliHeaders{"User-Agent: TestBot/1.0", "X-Token:abc"}.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if h.Get("User-Agent") != "TestBot/1.0" || h.Get("X-Token") != "abc" {
		t.Errorf("解析结果错误: %v", h)
	}

	if _, err := (CliHeaders{"NoColon"}).Parse(); err == nil {
		t.Error("缺少冒号应该返回错误")
	}
	if _, err := (CliHeaders{": value"}).Parse(); err == nil {
		t.Error("空名称应该返回错误")
	}
}
