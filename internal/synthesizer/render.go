package synthesizer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/RecoveryAshes/rufus/internal/models"
	"github.com/nao1215/markdown"
)

const textSeparator = "================================================================================"

// Render 将文档编码为指定格式
func Render(docs []models.Document, format models.OutputFormat) ([]byte, error) {
	switch format {
	case models.FormatJSON:
		return renderJSON(docs)
	case models.FormatMarkdown:
		return renderMarkdown(docs)
	case models.FormatText:
		return renderText(docs), nil
	default:
		return nil, &models.UnsupportedFormatError{Format: string(format)}
	}
}

func renderJSON(docs []models.Document) ([]byte, error) {
	if docs == nil {
		docs = []models.Document{}
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("JSON编码失败: %w", err)
	}
	return append(data, '\n'), nil
}

func renderMarkdown(docs []models.Document) ([]byte, error) {
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)

	md.H1("Rufus Results")
	md.PlainText("")

	rows := make([][]string, len(docs))
	for i, doc := range docs {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			doc.URL,
			formatScore(doc.Metadata.RelevanceScore),
			strconv.Itoa(doc.Metadata.CrawlerMetadata.Depth),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "URL", "Relevance", "Depth"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, doc := range docs {
		heading := doc.Metadata.Title
		if heading == "" {
			heading = doc.URL
		}
		md.H2(heading)
		md.PlainText("")

		items := []string{
			"URL: " + doc.URL,
			"Relevance: " + formatScore(doc.Metadata.RelevanceScore),
			"Topic match: " + formatScore(doc.Metadata.TopicMatch),
			"Information density: " + formatScore(doc.Metadata.InformationDensity),
			"Depth: " + strconv.Itoa(doc.Metadata.CrawlerMetadata.Depth),
			"Timestamp: " + doc.Timestamp.Format(time.RFC3339),
		}
		if parent := doc.Metadata.CrawlerMetadata.ParentURL; parent != "" {
			items = append(items, "Parent: "+parent)
		}
		md.BulletList(items...)
		md.PlainText("")

		if summary := strings.TrimSpace(doc.Metadata.Summary); summary != "" {
			md.Blockquote(summary)
			md.PlainText("")
		}

		md.PlainText(doc.Content)
		md.PlainText("")
		md.HorizontalRule()
		md.PlainText("")
	}

	if err := md.Build(); err != nil {
		return nil, fmt.Errorf("Markdown编码失败: %w", err)
	}
	return buf.Bytes(), nil
}

func renderText(docs []models.Document) []byte {
	var sb strings.Builder
	for _, doc := range docs {
		fmt.Fprintf(&sb, "URL: %s\n", doc.URL)
		if doc.Metadata.Title != "" {
			fmt.Fprintf(&sb, "Title: %s\n", doc.Metadata.Title)
		}
		fmt.Fprintf(&sb, "Relevance: %s\n", formatScore(doc.Metadata.RelevanceScore))
		fmt.Fprintf(&sb, "Depth: %d\n", doc.Metadata.CrawlerMetadata.Depth)
		fmt.Fprintf(&sb, "Timestamp: %s\n\n", doc.Timestamp.Format(time.RFC3339))
		sb.WriteString(doc.Content)
		sb.WriteString("\n")
		sb.WriteString(textSeparator)
		sb.WriteString("\n\n")
	}
	return []byte(sb.String())
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
