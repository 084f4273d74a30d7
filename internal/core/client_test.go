package core

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/RecoveryAshes/rufus/internal/models"
	"github.com/RecoveryAshes/rufus/internal/synthesizer"
)

func testConfig() *Config {
	return &Config{
		Crawl:   models.DefaultCrawlConfig(),
		Fetch:   models.DefaultFetchConfig(),
		Scoring: models.DefaultScoringConfig(),
		Output:  models.DefaultOutputConfig(),
	}
}

func newTestClient(t *testing.T, fetcher *fakeFetcher, backend *fakeBackend) (*Client, string) {
	t.Helper()
	dir := t.TempDir()
	client, err := NewClient(testConfig(),
		WithFetcher(fetcher),
		WithBackend(backend),
		WithSink(&synthesizer.FileSink{Dir: dir}),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, dir
}

func TestClient_Scrape(t *testing.T) {
	fetcher, backend := sampleSite()
	client, _ := newTestClient(t, fetcher, backend)

	docs, err := client.Scrape(context.Background(), urlA, "admissions", ScrapeOptions{MaxPages: 2})
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if len(docs) != 2 || docs[0].URL != urlA || docs[1].URL != urlB {
		t.Fatalf("docs = %+v", docs)
	}
	if docs[1].Metadata.CrawlerMetadata.ParentURL != urlA || docs[1].Metadata.CrawlerMetadata.Depth != 1 {
		t.Errorf("CrawlerMetadata = %+v", docs[1].Metadata.CrawlerMetadata)
	}
	if docs[0].Metadata.RelevanceScore != 0.9 || docs[0].Metadata.Source != models.SourceWeb {
		t.Errorf("Metadata = %+v", docs[0].Metadata)
	}
}

func TestClient_ScrapeDeduplicatesContent(t *testing.T) {
	fetcher, backend := sampleSite()
	dup := fetcher.pages[urlB]
	dup.Content = fetcher.pages[urlA].Content
	fetcher.pages[urlB] = dup

	client, _ := newTestClient(t, fetcher, backend)
	docs, err := client.Scrape(context.Background(), urlA, "admissions", ScrapeOptions{MaxPages: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].URL != urlA {
		t.Errorf("重复内容应只保留首个页面, got %d 个文档", len(docs))
	}
}

func TestClient_ScrapeMinRelevanceOption(t *testing.T) {
	fetcher, backend := sampleSite()
	client, _ := newTestClient(t, fetcher, backend)

	docs, err := client.Scrape(context.Background(), urlA, "admissions", ScrapeOptions{MinRelevance: ptr(0.95)})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 {
		t.Errorf("阈值0.95时不应有文档, got %d", len(docs))
	}
}

func TestClient_FormatFailsFast(t *testing.T) {
	fetcher, backend := sampleSite()
	client, dir := newTestClient(t, fetcher, backend)

	docs, err := client.Scrape(context.Background(), urlA, "admissions", ScrapeOptions{Format: "xml"})
	var formatErr *models.UnsupportedFormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("Scrape(xml) error = %v, want *UnsupportedFormatError", err)
	}
	if docs != nil {
		t.Errorf("docs = %v, want nil", docs)
	}

	if _, err := client.ScrapeMultiple(context.Background(), []string{urlA}, "admissions", ScrapeOptions{Format: "pdf"}); !errors.As(err, &formatErr) {
		t.Errorf("ScrapeMultiple(pdf) error = %v", err)
	}
	if len(fetcher.Fetched()) != 0 {
		t.Error("格式无效时不应开始抓取")
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Error("格式无效时不应写入文件")
	}
}

func TestClient_ScrapeAsync(t *testing.T) {
	fetcher, backend := sampleSite()
	client, _ := newTestClient(t, fetcher, backend)

	ch := client.ScrapeAsync(context.Background(), urlA, "admissions", ScrapeOptions{MaxPages: 1})
	result, ok := <-ch
	if !ok {
		t.Fatal("通道应先发送一个结果")
	}
	if result.Err != nil || len(result.Documents) != 1 {
		t.Errorf("result = %+v", result)
	}
	if _, ok := <-ch; ok {
		t.Error("通道应在发送一个结果后关闭")
	}
}

func TestClient_ScrapeSeedFailureReturnsEmpty(t *testing.T) {
	fetcher, backend := sampleSite()
	client, _ := newTestClient(t, fetcher, backend)

	docs, err := client.Scrape(context.Background(), "https://example.edu/missing", "admissions", ScrapeOptions{})
	if err != nil {
		t.Fatalf("单页错误不应作为整体错误返回: %v", err)
	}
	if docs == nil || len(docs) != 0 {
		t.Errorf("docs = %#v, want 非nil空切片", docs)
	}
}

func TestClient_ScrapeMultiple(t *testing.T) {
	fetcher, backend := sampleSite()
	fetcher.pages["https://example.org/"] = page("https://example.org/")
	backend.pageScores["content of https://example.org/"] = 0.85
	client, _ := newTestClient(t, fetcher, backend)

	seeds := []string{urlA, "https://down.example.net/", "not a url", "https://example.org/"}
	summary, err := client.ScrapeMultiple(context.Background(), seeds, "admissions", ScrapeOptions{MaxPages: 2})
	if err != nil {
		t.Fatalf("ScrapeMultiple() error = %v", err)
	}

	if summary.TotalURLs != 4 || summary.SuccessCount != 2 || summary.FailCount != 2 {
		t.Errorf("summary = %+v", summary)
	}
	if len(summary.Results) != len(seeds) {
		t.Fatalf("len(Results) = %d", len(summary.Results))
	}
	for i, r := range summary.Results {
		if r.URL != seeds[i] {
			t.Errorf("Results[%d].URL = %s, want %s", i, r.URL, seeds[i])
		}
	}

	if got := len(summary.Results[0].Documents); got != 2 {
		t.Errorf("种子A文档数 = %d, want 2", got)
	}
	var fetchErr *models.FetchError
	if !errors.As(summary.Results[1].Err, &fetchErr) {
		t.Errorf("不可达种子应返回FetchError, got %v", summary.Results[1].Err)
	}
	if summary.Results[2].Err == nil {
		t.Error("无效种子应返回错误")
	}
	if !summary.Results[3].Success() || len(summary.Results[3].Documents) != 1 {
		t.Errorf("Results[3] = %+v", summary.Results[3])
	}

	if got := len(summary.Documents()); got != 3 {
		t.Errorf("Documents() = %d, want 3", got)
	}
}

func TestClient_ScrapeMultipleNoSeeds(t *testing.T) {
	fetcher, backend := sampleSite()
	client, _ := newTestClient(t, fetcher, backend)

	if _, err := client.ScrapeMultiple(context.Background(), nil, "admissions", ScrapeOptions{}); !errors.Is(err, models.ErrNoSeeds) {
		t.Errorf("error = %v, want ErrNoSeeds", err)
	}
}

func TestClient_Save(t *testing.T) {
	fetcher, backend := sampleSite()
	client, dir := newTestClient(t, fetcher, backend)

	docs, err := client.Scrape(context.Background(), urlA, "admissions", ScrapeOptions{MaxPages: 2})
	if err != nil {
		t.Fatal(err)
	}

	location, err := client.Save(context.Background(), docs, "markdown")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !strings.HasPrefix(location, dir) || !strings.HasSuffix(location, ".md") {
		t.Errorf("location = %q", location)
	}
	data, err := os.ReadFile(location)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), urlB) {
		t.Error("输出应包含页面URL")
	}

	if _, err := client.Save(context.Background(), docs, "yaml"); err == nil {
		t.Error("不支持的格式应返回错误")
	}
}

func TestNewClient_NilConfig(t *testing.T) {
	if _, err := NewClient(nil); err == nil {
		t.Error("NewClient(nil) 应返回错误")
	}
}

func ptr[T any](v T) *T { return &v }

func TestClient_ScrapeZeroMinRelevance(t *testing.T) {
	fetcher, backend := sampleSite()
	client, _ := newTestClient(t, fetcher, backend)

	// 默认阈值0.7下C的链接(0.5)不会入队
	docs, err := client.Scrape(context.Background(), urlA, "admissions", ScrapeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 3 {
		t.Fatalf("默认阈值文档数 = %d, want 3", len(docs))
	}

	fetcher, backend = sampleSite()
	client, _ = newTestClient(t, fetcher, backend)
	docs, err = client.Scrape(context.Background(), urlA, "admissions", ScrapeOptions{MinRelevance: ptr(0.0)})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 4 {
		t.Errorf("阈值0时应接受全部4个页面, got %d", len(docs))
	}
}

func TestClient_ScrapeInvalidMinRelevance(t *testing.T) {
	fetcher, backend := sampleSite()
	client, _ := newTestClient(t, fetcher, backend)

	if _, err := client.Scrape(context.Background(), urlA, "admissions", ScrapeOptions{MinRelevance: ptr(1.5)}); err == nil {
		t.Error("阈值超出范围应返回错误")
	}
	if got := fetcher.Fetched(); len(got) != 0 {
		t.Errorf("参数无效时不应抓取, fetched = %v", got)
	}
}
