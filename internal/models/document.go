package models

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// SourceWeb 文档来源标记
const SourceWeb = "web"

// CrawlerMetadata 文档的抓取上下文
type CrawlerMetadata struct {
	Depth     int    `json:"depth"`
	ParentURL string `json:"parent_url"`
}

// DocumentMetadata 文档元数据
type DocumentMetadata struct {
	RelevanceScore     float64         `json:"relevance_score"`
	TopicMatch         float64         `json:"topic_match"`
	InformationDensity float64         `json:"information_density"`
	Summary            string          `json:"summary,omitempty"`
	Title              string          `json:"title,omitempty"`
	Source             string          `json:"source"`
	ContentHash        string          `json:"content_hash"`
	ExtractedData      map[string]any  `json:"extracted_data"`
	CrawlerMetadata    CrawlerMetadata `json:"crawler_metadata"`
}

// Document 对外输出的文档单元,创建后不可变
type Document struct {
	ID        string           `json:"id"`
	URL       string           `json:"url"`
	Timestamp time.Time        `json:"timestamp"`
	Content   string           `json:"content"`
	Metadata  DocumentMetadata `json:"metadata"`
}

// NewDocument 由评分页面构造文档
func NewDocument(page ScoredPage, at time.Time) Document {
	extracted := page.Metadata
	if extracted == nil {
		extracted = map[string]any{}
	}
	return Document{
		ID:        generateID(),
		URL:       page.URL,
		Timestamp: at.UTC(),
		Content:   page.Content,
		Metadata: DocumentMetadata{
			RelevanceScore:     page.RelevanceScore,
			TopicMatch:         page.TopicMatch,
			InformationDensity: page.InformationDensity,
			Summary:            page.Summary,
			Title:              page.Title,
			Source:             SourceWeb,
			ContentHash:        ContentHash(page.Content),
			ExtractedData:      extracted,
			CrawlerMetadata: CrawlerMetadata{
				Depth:     page.Depth,
				ParentURL: page.ParentURL,
			},
		},
	}
}

// ContentHash 计算内容的SHA-256指纹
func ContentHash(content string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
}
