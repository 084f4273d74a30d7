package models

// Link 页面出链
type Link struct {
	Href       string `json:"href"`        // 已解析的绝对URL
	AnchorText string `json:"anchor_text"` // 锚文本
}

// PageRecord 单个URL抓取+提取的结果,创建后不再修改
type PageRecord struct {
	URL       string         `json:"url"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Links     []Link         `json:"links"`
	Metadata  map[string]any `json:"metadata,omitempty"` // 结构化提取结果(meta/open_graph/schema_org/sections)
	Depth     int            `json:"depth"`
	ParentURL string         `json:"parent_url,omitempty"`
	Rendered  bool           `json:"rendered"` // 是否经过浏览器渲染
}

// ScoredPage 附带评分的页面
type ScoredPage struct {
	PageRecord
	RelevanceScore     float64 `json:"relevance_score"`     // [0,1]
	TopicMatch         float64 `json:"topic_match"`         // 主题匹配子分
	InformationDensity float64 `json:"information_density"` // 信息密度子分
	Summary            string  `json:"summary"`
}

// Score 评分器对单页内容的输出
type Score struct {
	Relevance          float64
	TopicMatch         float64
	InformationDensity float64
	Summary            string
}

// LinkCandidate 链接排序输入
type LinkCandidate struct {
	URL        string `json:"url"`
	AnchorText string `json:"anchor_text"`
	Depth      int    `json:"depth"` // 该链接被访问时的深度
}

// NavigationSuggestion 候选链接及其探索优先级
type NavigationSuggestion struct {
	URL                 string  `json:"url"`
	AnchorText          string  `json:"anchor_text"`
	Depth               int     `json:"depth"`
	RelevanceScore      float64 `json:"relevance_score"`
	ExplorationPriority float64 `json:"exploration_priority"` // relevance / (1+depth)
	Rationale           string  `json:"rationale,omitempty"`
}

// ExplorationPriority 按深度折减相关度
func ExplorationPriority(relevance float64, depth int) float64 {
	if depth < 0 {
		depth = 0
	}
	return relevance / float64(1+depth)
}

// PageFailure 单个URL的失败记录
type PageFailure struct {
	URL   string `json:"url"`
	Depth int    `json:"depth"`
	Err   error  `json:"-"`
}
