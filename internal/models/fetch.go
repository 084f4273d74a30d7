package models

// DefaultUserAgent 默认User-Agent
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/120.0.0.0 Safari/537.36 rufus/1.0"

// FetchConfig 页面抓取配置
type FetchConfig struct {
	UserAgent          string            `json:"user_agent" mapstructure:"user_agent"`
	DelayMs            int               `json:"delay_ms" mapstructure:"delay_ms"`                         // 同域请求间隔
	RandomDelayMs      int               `json:"random_delay_ms" mapstructure:"random_delay_ms"`           // 额外随机间隔
	Parallelism        int               `json:"parallelism" mapstructure:"parallelism"`                   // 同域最大并发
	RespectRobots      bool              `json:"respect_robots" mapstructure:"respect_robots"`             // 遵守robots.txt
	MinContentLength   int               `json:"min_content_length" mapstructure:"min_content_length"`     // 低于该长度且含脚本时改用浏览器渲染
	MaxBodySize        int               `json:"max_body_size" mapstructure:"max_body_size"`               // 响应体上限(字节)
	RenderWaitMs       int               `json:"render_wait_ms" mapstructure:"render_wait_ms"`             // 浏览器加载后的额外等待
	InsecureSkipVerify bool              `json:"insecure_skip_verify" mapstructure:"insecure_skip_verify"` // 跳过TLS证书验证
	Headers            map[string]string `json:"headers" mapstructure:"headers"`                           // 自定义请求头
}

// DefaultFetchConfig 默认抓取配置
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		UserAgent:        DefaultUserAgent,
		DelayMs:          200,
		RandomDelayMs:    300,
		Parallelism:      2,
		RespectRobots:    true,
		MinContentLength: 100,
		MaxBodySize:      10 * 1024 * 1024,
		RenderWaitMs:     2000,
	}
}

// ResourceConfig 资源限制配置
type ResourceConfig struct {
	SafetyReserveMemory int `json:"safety_reserve_memory" mapstructure:"safety_reserve_memory"` // MB
	SafetyThreshold     int `json:"safety_threshold" mapstructure:"safety_threshold"`           // MB
	CPULoadThreshold    int `json:"cpu_load_threshold" mapstructure:"cpu_load_threshold"`       // %
	MaxSlots            int `json:"max_slots" mapstructure:"max_slots"`                         // 浏览器页面/并行种子上限
}
