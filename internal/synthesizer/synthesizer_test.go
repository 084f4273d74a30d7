package synthesizer

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/RecoveryAshes/rufus/internal/models"
)

var fixedTime = time.Date(2024, 3, 9, 14, 5, 7, 0, time.FixedZone("CST", 8*3600))

func newTestSynthesizer() *Synthesizer {
	return &Synthesizer{now: func() time.Time { return fixedTime }}
}

func scored(url, title, content string, relevance float64, depth int) models.ScoredPage {
	return models.ScoredPage{
		PageRecord: models.PageRecord{
			URL:       url,
			Title:     title,
			Content:   content,
			Depth:     depth,
			ParentURL: "https://example.edu/",
			Metadata:  map[string]any{"meta": map[string]string{"description": "d"}},
		},
		RelevanceScore:     relevance,
		TopicMatch:         0.6,
		InformationDensity: 0.9,
		Summary:            "summary of " + title,
	}
}

func samplePages() []models.ScoredPage {
	return []models.ScoredPage{
		scored("https://example.edu/a", "Admissions", "admission content", 0.9, 1),
		scored("https://example.edu/b", "Copy", "admission content", 0.8, 2),
		scored("https://example.edu/c", "Deadlines", "deadline content", 0.75, 1),
	}
}

func TestSynthesize_Dedup(t *testing.T) {
	docs, err := newTestSynthesizer().Synthesize(samplePages(), "json")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len(docs) = %d, want 2", len(docs))
	}
	if docs[0].URL != "https://example.edu/a" {
		t.Errorf("应保留首次出现的页面, got %s", docs[0].URL)
	}
	if docs[1].URL != "https://example.edu/c" {
		t.Errorf("docs[1].URL = %s", docs[1].URL)
	}

	seen := map[string]bool{}
	for _, d := range docs {
		if seen[d.Metadata.ContentHash] {
			t.Errorf("重复的content_hash: %s", d.Metadata.ContentHash)
		}
		seen[d.Metadata.ContentHash] = true
		if d.ID == "" {
			t.Error("ID 不应为空")
		}
		if d.Timestamp.Location() != time.UTC || !d.Timestamp.Equal(fixedTime) {
			t.Errorf("Timestamp = %v, want UTC %v", d.Timestamp, fixedTime)
		}
		if d.Metadata.Source != models.SourceWeb {
			t.Errorf("Source = %q", d.Metadata.Source)
		}
	}
	if docs[0].Metadata.CrawlerMetadata.Depth != 1 || docs[0].Metadata.CrawlerMetadata.ParentURL != "https://example.edu/" {
		t.Errorf("CrawlerMetadata = %+v", docs[0].Metadata.CrawlerMetadata)
	}
}

func TestSynthesize_UnsupportedFormat(t *testing.T) {
	docs, err := newTestSynthesizer().Synthesize(samplePages(), "xml")
	var formatErr *models.UnsupportedFormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("Synthesize(xml) error = %v, want *UnsupportedFormatError", err)
	}
	if docs != nil {
		t.Errorf("docs = %v, want nil", docs)
	}
}

func TestSynthesize_Empty(t *testing.T) {
	docs, err := newTestSynthesizer().Synthesize(nil, "markdown")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if docs == nil || len(docs) != 0 {
		t.Errorf("docs = %#v, want 非nil空切片", docs)
	}
}

func TestRender_JSON(t *testing.T) {
	docs, _ := newTestSynthesizer().Synthesize(samplePages(), "json")
	data, err := Render(docs, models.FormatJSON)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("输出不是合法JSON数组: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("len = %d, want 2", len(decoded))
	}
	for _, key := range []string{"id", "url", "timestamp", "content", "metadata"} {
		if _, ok := decoded[0][key]; !ok {
			t.Errorf("缺少字段 %q", key)
		}
	}
	meta := decoded[0]["metadata"].(map[string]any)
	for _, key := range []string{"relevance_score", "topic_match", "information_density", "summary", "source", "title", "extracted_data", "crawler_metadata", "content_hash"} {
		if _, ok := meta[key]; !ok {
			t.Errorf("metadata缺少字段 %q", key)
		}
	}

	empty, err := Render(nil, models.FormatJSON)
	if err != nil || strings.TrimSpace(string(empty)) != "[]" {
		t.Errorf("Render(空) = %q, %v", empty, err)
	}
}

func TestRender_Markdown(t *testing.T) {
	docs, _ := newTestSynthesizer().Synthesize(samplePages(), "md")
	data, err := Render(docs, models.FormatMarkdown)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := string(data)

	for _, want := range []string{
		"# Rufus Results",
		"## Admissions",
		"## Deadlines",
		"https://example.edu/a",
		"0.900",
		"> summary of Admissions",
		"admission content",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Markdown缺少 %q\n%s", want, out)
		}
	}
}

func TestRender_Text(t *testing.T) {
	docs, _ := newTestSynthesizer().Synthesize(samplePages(), "text")
	data, err := Render(docs, models.FormatText)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := string(data)

	if strings.Count(out, textSeparator) != 2 {
		t.Errorf("分隔线数量 = %d, want 2", strings.Count(out, textSeparator))
	}
	for _, want := range []string{
		"URL: https://example.edu/a\n",
		"Relevance: 0.900\n",
		"Depth: 1\n",
		"Timestamp: 2024-03-09T06:05:07Z\n",
		"deadline content\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("文本输出缺少 %q", want)
		}
	}
}

func TestOutputFileName(t *testing.T) {
	tests := []struct {
		prefix string
		format models.OutputFormat
		want   string
	}{
		{"", models.FormatJSON, "rufus_results_20240309_140507.json"},
		{"report", models.FormatMarkdown, "report_20240309_140507.md"},
		{"report", models.FormatText, "report_20240309_140507.txt"},
	}
	for _, tt := range tests {
		if got := OutputFileName(tt.prefix, tt.format, fixedTime); got != tt.want {
			t.Errorf("OutputFileName(%q, %s) = %q, want %q", tt.prefix, tt.format, got, tt.want)
		}
	}
}

func TestSave_File(t *testing.T) {
	dir := t.TempDir()
	docs, _ := newTestSynthesizer().Synthesize(samplePages(), "json")

	location, err := Save(context.Background(), docs, "json", &FileSink{Dir: filepath.Join(dir, "out")}, "results")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if !regexp.MustCompile(`results_\d{8}_\d{6}\.json$`).MatchString(location) {
		t.Errorf("location = %q", location)
	}
	data, err := os.ReadFile(location)
	if err != nil {
		t.Fatalf("读取输出失败: %v", err)
	}
	var decoded []models.Document
	if err := json.Unmarshal(data, &decoded); err != nil || len(decoded) != 2 {
		t.Errorf("输出内容无效: %v (len=%d)", err, len(decoded))
	}

	entries, _ := os.ReadDir(filepath.Join(dir, "out"))
	if len(entries) != 1 {
		t.Errorf("目录中应只有最终文件, got %d 个条目", len(entries))
	}
}

func TestSave_UnwritableTarget(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Save(context.Background(), nil, "text", &FileSink{Dir: blocker}, "")
	var persistErr *models.PersistenceError
	if !errors.As(err, &persistErr) {
		t.Fatalf("Save() error = %v, want *PersistenceError", err)
	}
}

func TestSave_UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	_, err := Save(context.Background(), nil, "pdf", &FileSink{Dir: dir}, "")
	var formatErr *models.UnsupportedFormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("Save(pdf) error = %v, want *UnsupportedFormatError", err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Error("格式无效时不应写入任何文件")
	}
}

type failingSink struct{}

func (failingSink) Write(context.Context, string, []byte, string) (string, error) {
	return "", errors.New("disk full")
}

func TestSave_WrapsSinkErrors(t *testing.T) {
	_, err := Save(context.Background(), nil, "json", failingSink{}, "")
	var persistErr *models.PersistenceError
	if !errors.As(err, &persistErr) {
		t.Fatalf("Save() error = %v, want *PersistenceError", err)
	}
}

func TestNewSink(t *testing.T) {
	sink, err := NewSink("results", models.MinIOConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if fs, ok := sink.(*FileSink); !ok || fs.Dir != "results" {
		t.Errorf("NewSink(dir) = %#v", sink)
	}

	sink, err = NewSink("s3://crawl-results/runs/2024", models.MinIOConfig{Endpoint: "localhost:9000"})
	if err != nil {
		t.Fatalf("NewSink(s3) error = %v", err)
	}
	ms, ok := sink.(*MinioSink)
	if !ok || ms.bucket != "crawl-results" || ms.prefix != "runs/2024" {
		t.Errorf("NewSink(s3) = %#v", sink)
	}

	if _, err := NewSink("s3://bucket", models.MinIOConfig{}); err == nil {
		t.Error("缺少endpoint时应返回错误")
	}
}

func TestParseS3Target(t *testing.T) {
	tests := []struct {
		target         string
		bucket, prefix string
		ok             bool
	}{
		{"s3://bucket", "bucket", "", true},
		{"s3://bucket/a/b/", "bucket", "a/b", true},
		{"s3://", "", "", false},
		{"./output", "", "", false},
	}
	for _, tt := range tests {
		b, p, ok := parseS3Target(tt.target)
		if b != tt.bucket || p != tt.prefix || ok != tt.ok {
			t.Errorf("parseS3Target(%q) = %q, %q, %v", tt.target, b, p, ok)
		}
	}
}
