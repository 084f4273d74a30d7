// Package crawlers 提供抓取循环的外部协作者: 待访问队列与页面抓取
//
// # 概述
//
// crawlers包实现两部分:
//   - Frontier: FIFO待访问队列 + visited集合,按规范URL去重
//   - Fetcher: 抓取单个URL并提取正文、出链和结构化数据
//
// # URL规范化
//
// CanonicalURL 是visited集合的键:
//   - scheme/host小写,去掉默认端口(:80/:443)
//   - 去掉fragment,空路径为"/",非根路径去掉结尾斜杠
//   - 保留query,按参数名排序
//
//	key, err := CanonicalURL("HTTPS://Example.com:443/docs/?b=2&a=1#top")
//	// key == "https://example.com/docs?a=1&b=2"
//
// # Fetcher
//
// 三种实现,由抓取模式选择:
//   - StaticFetcher (Colly): 普通HTTP请求,支持限速、robots.txt、自定义头部、br/deflate解码
//   - DynamicFetcher (go-rod): 无头浏览器渲染,页面来自PagePool
//   - HybridFetcher (auto): 先静态抓取,页面含<script>且正文过短时改用浏览器
//
//	fetcher, err := NewFetcher(crawlConfig, fetchConfig, monitor, headerProvider)
//	if err != nil { /* 处理错误 */ }
//	defer fetcher.Close()
//	page, err := fetcher.Fetch(ctx, "https://example.com")
//
// # Extractor
//
// 基于goquery: 标题、主内容(main > article > div[role=main] > 内容类名div > body)、
// 出链(绝对URL+锚文本)、meta、Open Graph、schema.org ld+json、h1-h3分节。
//
// # ResourceMonitor
//
// 采样系统内存与CPU,计算浏览器页面池和多种子并发的上限:
//
//	monitor := NewResourceMonitor(ResourceMonitorConfigFrom(resourceConfig))
//	monitor.StartMonitoring(time.Second)
//	defer monitor.StopMonitoring()
//	slots := monitor.CalculateMaxSlots()
package crawlers
