package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 项目配置结构体。进程启动时加载一次，之后只读。
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Cache    CacheConfig    `yaml:"cache"`
	Search   SearchConfig   `yaml:"search"`
	Extract  ExtractConfig  `yaml:"extract"`
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr    string `yaml:"addr"`
	Timeout string `yaml:"timeout"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// CacheConfig 缓存后端（PostgreSQL）配置。Enabled 为 false 时退化为进程内缓存。
type CacheConfig struct {
	Enabled     bool     `yaml:"enabled"`
	DB          DBConfig `yaml:"db"`
	ResponseTTL int      `yaml:"response_ttl"` // 秒，默认 3600
	DocumentTTL int      `yaml:"document_ttl"` // 秒，默认 604800
}

// DBConfig 数据库连接配置
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// SearchConfig 搜索相关配置。Providers 决定回退顺序。
type SearchConfig struct {
	Providers []string        `yaml:"providers"`
	Tavily    TavilyConfig    `yaml:"tavily"`
	Brave     BraveConfig     `yaml:"brave"`
	SearchAPI SearchAPIConfig `yaml:"searchapi"`
	SearXNG   SearXNGConfig   `yaml:"searxng"`
	Timeout   int             `yaml:"timeout"` // 秒
}

// TavilyConfig Tavily 配置
type TavilyConfig struct {
	APIKey string `yaml:"api_key"`
}

// BraveConfig Brave Search 配置
type BraveConfig struct {
	APIKey string `yaml:"api_key"`
}

// SearchAPIConfig SearchAPI.io 配置
type SearchAPIConfig struct {
	APIKey string `yaml:"api_key"`
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"`
}

// ExtractConfig 正文抽取配置。Providers 决定回退顺序。
type ExtractConfig struct {
	Providers      []string        `yaml:"providers"`
	Firecrawl      FirecrawlConfig `yaml:"firecrawl"`
	MaxConcurrency int             `yaml:"max_concurrency"` // 默认 3
	Timeout        int             `yaml:"timeout"`         // 秒
}

// FirecrawlConfig Firecrawl 配置
type FirecrawlConfig struct {
	APIKey string `yaml:"api_key"`
}

// LLMConfig 文本生成配置。OpenRouter 在前，Ollama 兜底；forceLocal 请求反转顺序。
type LLMConfig struct {
	OpenRouter  OpenRouterConfig  `yaml:"openrouter"`
	Ollama      OllamaConfig      `yaml:"ollama"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Timeout     int               `yaml:"timeout"` // 秒
}

// OpenRouterConfig OpenRouter 配置
type OpenRouterConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// OllamaConfig Ollama 配置
type OllamaConfig struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
}

// ConcurrencyConfig 生成调用限流配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// PipelineConfig 管线级配置
type PipelineConfig struct {
	StructuredMaxTokens int `yaml:"structured_max_tokens"`
}

// LoadConfig 从指定路径加载配置
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Cache.ResponseTTL == 0 {
		c.Cache.ResponseTTL = 3600
	}
	if c.Cache.DocumentTTL == 0 {
		c.Cache.DocumentTTL = 7 * 24 * 3600
	}
	if c.Search.Timeout == 0 {
		c.Search.Timeout = 20
	}
	if c.Extract.Timeout == 0 {
		c.Extract.Timeout = 20
	}
	if c.Extract.MaxConcurrency == 0 {
		c.Extract.MaxConcurrency = 3
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 60
	}
	if c.LLM.Concurrency.QPS == 0 {
		c.LLM.Concurrency.QPS = 2
	}
	if c.LLM.Concurrency.RPM == 0 {
		c.LLM.Concurrency.RPM = 60
	}
	if c.LLM.OpenRouter.BaseURL == "" {
		c.LLM.OpenRouter.BaseURL = "https://openrouter.ai/api/v1"
	}
	if c.LLM.Ollama.Host == "" {
		c.LLM.Ollama.Host = "http://localhost:11434"
	}
	if c.Pipeline.StructuredMaxTokens == 0 {
		c.Pipeline.StructuredMaxTokens = 2000
	}
}

// ResponseTTLDuration 响应缓存 TTL。
func (c *CacheConfig) ResponseTTLDuration() time.Duration {
	return time.Duration(c.ResponseTTL) * time.Second
}

// DocumentTTLDuration 文档缓存 TTL。
func (c *CacheConfig) DocumentTTLDuration() time.Duration {
	return time.Duration(c.DocumentTTL) * time.Second
}
