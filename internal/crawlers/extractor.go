package crawlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/rufus/internal/models"
	"github.com/RecoveryAshes/rufus/internal/utils"
	"golang.org/x/net/html"
)

// 主内容容器候选,按优先级排列
var mainContentSelectors = []string{
	"main",
	"article",
	`div[role="main"]`,
}

// 类名启发式匹配主内容容器
var contentClassPattern = regexp.MustCompile(`(?i)(content|main|article|post|entry)`)

// 不参与正文提取的标签
const noiseSelector = "script, style, noscript, template, svg, iframe, canvas"

// 仅在回退到body时剔除的页面框架
const chromeSelector = "nav, header, footer, aside"

// Extractor HTML内容提取器
// 提取标题、主内容、出链、meta/Open Graph/schema.org结构化数据及h1-h3分节
type Extractor struct{}

// NewExtractor 创建提取器
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract 解析HTML并生成PageRecord
func (e *Extractor) Extract(pageURL string, body []byte) (*models.PageRecord, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, &models.ExtractionError{URL: pageURL, Cause: err}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &models.ExtractionError{URL: pageURL, Cause: errors.New("响应体为空")}
	}

	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &models.ExtractionError{URL: pageURL, Cause: fmt.Errorf("HTML解析失败: %w", err)}
	}
	doc := goquery.NewDocumentFromNode(root)

	// <base href> 覆盖相对链接的解析基准
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = b
		}
	}

	record := &models.PageRecord{
		URL:      pageURL,
		Title:    CleanText(doc.Find("title").First().Text()),
		Links:    extractLinks(doc, base),
		Metadata: make(map[string]any),
	}

	meta, openGraph := extractMeta(doc)
	if len(meta) > 0 {
		record.Metadata["meta"] = meta
	}
	if len(openGraph) > 0 {
		record.Metadata["open_graph"] = openGraph
	}
	if schema := extractSchemaOrg(doc); len(schema) > 0 {
		record.Metadata["schema_org"] = schema
	}

	// 以下步骤会修改文档树
	doc.Find(noiseSelector).Remove()

	if sections := extractSections(doc); len(sections) > 0 {
		record.Metadata["sections"] = sections
	}

	record.Content = extractMainContent(doc)
	if record.Title == "" {
		if og, ok := openGraph["title"]; ok {
			record.Title = og
		}
	}

	utils.Debugf("提取完成 [%s]: 正文%d字符, 链接%d个", pageURL, len(record.Content), len(record.Links))
	return record, nil
}

// extractLinks 提取并解析a[href],去重并保留首个非空锚文本
func extractLinks(doc *goquery.Document, base *url.URL) []models.Link {
	links := make([]models.Link, 0)
	index := make(map[string]int)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}

		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		resolved.Fragment = ""
		abs := resolved.String()

		anchor := CleanText(s.Text())
		if anchor == "" {
			anchor = CleanText(s.AttrOr("title", s.AttrOr("aria-label", "")))
		}

		if i, seen := index[abs]; seen {
			if links[i].AnchorText == "" {
				links[i].AnchorText = anchor
			}
			return
		}
		index[abs] = len(links)
		links = append(links, models.Link{Href: abs, AnchorText: anchor})
	})

	return links
}

// extractMeta 提取meta标签,og:前缀单独归入Open Graph
func extractMeta(doc *goquery.Document) (map[string]string, map[string]string) {
	meta := make(map[string]string)
	openGraph := make(map[string]string)

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content, ok := s.Attr("content")
		if !ok {
			return
		}
		content = strings.TrimSpace(content)

		if prop, ok := s.Attr("property"); ok && strings.HasPrefix(prop, "og:") {
			openGraph[strings.TrimPrefix(prop, "og:")] = content
			return
		}

		key := s.AttrOr("name", s.AttrOr("property", ""))
		if key == "" {
			return
		}
		meta[strings.ToLower(key)] = content
	})

	return meta, openGraph
}

// extractSchemaOrg 解码ld+json块,无效JSON直接跳过
func extractSchemaOrg(doc *goquery.Document) []any {
	var blocks []any
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			utils.Debugf("跳过无效的ld+json块: %v", err)
			return
		}
		blocks = append(blocks, v)
	})
	return blocks
}

// extractSections 以h1-h3为界切分章节
func extractSections(doc *goquery.Document) []map[string]string {
	sections := make([]map[string]string, 0)
	doc.Find("h1, h2, h3").Each(func(_ int, h *goquery.Selection) {
		heading := CleanText(h.Text())
		if heading == "" {
			return
		}
		body := CleanText(nodeText(h.NextUntil("h1, h2, h3").Nodes...))
		sections = append(sections, map[string]string{
			"level":   goquery.NodeName(h),
			"header":  heading,
			"content": body,
		})
	})
	return sections
}

// extractMainContent 按优先级选择主内容容器并返回清洗后的文本
func extractMainContent(doc *goquery.Document) string {
	for _, sel := range mainContentSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			if text := CleanText(nodeText(s.Nodes...)); text != "" {
				return text
			}
		}
	}

	var byClass *goquery.Selection
	doc.Find("div[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if contentClassPattern.MatchString(s.AttrOr("class", "")) {
			byClass = s
			return false
		}
		return true
	})
	if byClass != nil {
		if text := CleanText(nodeText(byClass.Nodes...)); text != "" {
			return text
		}
	}

	doc.Find(chromeSelector).Remove()
	if body := doc.Find("body"); body.Length() > 0 {
		return CleanText(nodeText(body.Nodes...))
	}
	return CleanText(nodeText(doc.Nodes...))
}

// 行内元素不插入分隔空格
var inlineElements = map[string]bool{
	"a": true, "abbr": true, "b": true, "code": true, "em": true, "i": true,
	"label": true, "mark": true, "s": true, "small": true, "span": true,
	"strong": true, "sub": true, "sup": true, "time": true, "u": true,
}

// nodeText 收集文本节点,块元素之间以空格分隔
func nodeText(nodes ...*html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.Data == "br" {
				sb.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && !inlineElements[n.Data] {
			sb.WriteByte(' ')
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return sb.String()
}

// CleanText 折叠空白并统一引号
func CleanText(s string) string {
	s = strings.NewReplacer("\u201c", `"`, "\u201d", `"`, "\u00a0", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
