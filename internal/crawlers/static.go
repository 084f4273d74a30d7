package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RecoveryAshes/rufus/internal/models"
	"github.com/RecoveryAshes/rufus/internal/utils"
	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
)

// StaticFetcher 静态抓取器(使用Colly)
// 每次抓取克隆基础collector,克隆体共享HTTP后端、限速规则与robots缓存
type StaticFetcher struct {
	base           *colly.Collector
	config         models.FetchConfig
	extractor      *Extractor
	headerProvider models.HeaderProvider
}

// NewStaticFetcher 创建静态抓取器
func NewStaticFetcher(crawl models.CrawlConfig, fetch models.FetchConfig, headerProvider models.HeaderProvider) (*StaticFetcher, error) {
	timeout := time.Duration(crawl.WaitTime) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	options := []colly.CollectorOption{
		colly.AllowURLRevisit(),
	}
	if fetch.UserAgent != "" {
		options = append(options, colly.UserAgent(fetch.UserAgent))
	}
	if fetch.MaxBodySize > 0 {
		options = append(options, colly.MaxBodySize(fetch.MaxBodySize))
	}
	c := colly.NewCollector(options...)

	// 访问去重由Frontier负责,robots.txt按配置处理
	c.IgnoreRobotsTxt = !fetch.RespectRobots

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: fetch.InsecureSkipVerify,
		},
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	c.WithTransport(transport)
	c.SetRequestTimeout(timeout)

	parallelism := fetch.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: parallelism,
		Delay:       time.Duration(fetch.DelayMs) * time.Millisecond,
		RandomDelay: time.Duration(fetch.RandomDelayMs) * time.Millisecond,
	}); err != nil {
		return nil, fmt.Errorf("设置限速规则失败: %w", err)
	}

	utils.Debugf("静态抓取器: 超时=%v, 并发=%d, 间隔=%dms, robots=%v",
		timeout, parallelism, fetch.DelayMs, fetch.RespectRobots)

	return &StaticFetcher{
		base:           c,
		config:         fetch,
		extractor:      NewExtractor(),
		headerProvider: headerProvider,
	}, nil
}

// Fetch 实现Fetcher接口
func (sf *StaticFetcher) Fetch(ctx context.Context, rawURL string) (*models.PageRecord, error) {
	record, _, err := sf.fetchPage(ctx, rawURL)
	return record, err
}

// Close 静态抓取器无需释放资源
func (sf *StaticFetcher) Close() error {
	return nil
}

// fetchPage 抓取页面,同时返回原始HTML是否包含<script>
func (sf *StaticFetcher) fetchPage(ctx context.Context, rawURL string) (*models.PageRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, &models.FetchError{URL: rawURL, Cause: err}
	}

	c := sf.base.Clone()

	var (
		record     *models.PageRecord
		hasScripts bool
		pageErr    error
		statusCode int
	)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		sf.applyHeaders(r)
		utils.Debugf("访问: %s", r.URL.String())
	})

	c.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
		body := r.Body
		if encoding := r.Headers.Get("Content-Encoding"); encoding != "" {
			decoded, err := decompressResponse(encoding, body)
			if err != nil {
				utils.Warnf("解压响应失败 [%s] (编码=%s): %v", rawURL, encoding, err)
			} else {
				body = decoded
			}
		}

		finalURL := r.Request.URL.String()
		contentType := strings.ToLower(r.Headers.Get("Content-Type"))

		switch {
		case contentType == "" || strings.Contains(contentType, "html") || strings.Contains(contentType, "xml"):
			hasScripts = bytes.Contains(bytes.ToLower(body), []byte("<script"))
			rec, err := sf.extractor.Extract(finalURL, body)
			if err != nil {
				pageErr = err
				return
			}
			rec.URL = rawURL
			record = rec
		case strings.HasPrefix(contentType, "text/plain"):
			record = &models.PageRecord{
				URL:      rawURL,
				Content:  CleanText(string(body)),
				Links:    []models.Link{},
				Metadata: map[string]any{},
			}
		default:
			pageErr = &models.ExtractionError{URL: rawURL, Cause: fmt.Errorf("不支持的内容类型: %s", contentType)}
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		code := 0
		if r != nil {
			code = r.StatusCode
		}
		pageErr = &models.FetchError{URL: rawURL, StatusCode: code, Cause: err}
	})

	if err := c.Visit(rawURL); err != nil && pageErr == nil {
		pageErr = &models.FetchError{URL: rawURL, StatusCode: statusCode, Cause: err}
	}
	c.Wait()

	if pageErr != nil {
		return nil, false, pageErr
	}
	if record == nil {
		cause := errors.New("未收到响应")
		if ctx.Err() != nil {
			cause = ctx.Err()
		}
		return nil, false, &models.FetchError{URL: rawURL, StatusCode: statusCode, Cause: cause}
	}
	return record, hasScripts, nil
}

// applyHeaders 应用自定义HTTP头部
func (sf *StaticFetcher) applyHeaders(r *colly.Request) {
	for name, value := range sf.config.Headers {
		r.Headers.Set(name, value)
	}
	if sf.headerProvider == nil {
		return
	}
	headers, err := sf.headerProvider.GetHeaders()
	if err != nil {
		utils.Warnf("获取HTTP头部失败: %v", err)
		return
	}
	for name, values := range headers {
		if len(values) > 0 {
			r.Headers.Set(name, values[0])
		}
	}
}

// decompressResponse 解码Colly未处理的压缩响应体
// gzip已被Colly解码时按魔数判断直接返回原文
func decompressResponse(encoding string, body []byte) ([]byte, error) {
	var reader io.Reader
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "br":
		reader = brotli.NewReader(bytes.NewReader(body))
	case "deflate":
		// HTTP的deflate为zlib封装,部分服务器发送裸deflate流
		if !hasZlibHeader(body) {
			reader = flate.NewReader(bytes.NewReader(body))
			break
		}
		zr, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		reader = zr
	case "gzip":
		if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
			return body, nil
		}
		gz, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	default:
		return body, nil
	}
	return io.ReadAll(reader)
}

// hasZlibHeader 检查RFC 1950头: CM=8且CMF/FLG组合能被31整除
func hasZlibHeader(body []byte) bool {
	if len(body) < 2 {
		return false
	}
	return body[0]&0x0f == 8 && (uint16(body[0])<<8|uint16(body[1]))%31 == 0
}
