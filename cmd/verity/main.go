package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/iWorld-y/verity/internal/cache"
	"github.com/iWorld-y/verity/internal/config"
	"github.com/iWorld-y/verity/internal/contracts"
	"github.com/iWorld-y/verity/internal/logger"
	"github.com/iWorld-y/verity/internal/pipeline"
)

func main() {
	var (
		flagconf   string
		query      string
		outputType string
		maxResults int
		forceLocal bool
		include    string
		exclude    string
	)
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "配置文件路径")
	flag.StringVar(&query, "q", "", "查询内容")
	flag.StringVar(&outputType, "type", "", "结构化类型: faq/study_guide/briefing_doc/timeline/mind_map")
	flag.IntVar(&maxResults, "max", 6, "最大结果数 [3, 12]")
	flag.BoolVar(&forceLocal, "local", false, "优先使用本地模型")
	flag.StringVar(&include, "include", "", "优先域名，逗号分隔")
	flag.StringVar(&exclude, "exclude", "", "排除域名，逗号分隔")
	flag.Parse()

	if query == "" {
		fmt.Fprintln(os.Stderr, "usage: verity -q <query> [-type faq] [-conf config.yaml]")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(flagconf)
	if err != nil {
		log.Fatalf("无法加载配置文件: %v", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}

	ctx := context.Background()

	var store cache.Store
	if cfg.Cache.Enabled {
		pg, err := cache.NewPostgresStore(cfg.Cache.DB)
		if err != nil {
			logger.Log.Warnf("缓存后端不可用，退化为进程内缓存: %v", err)
			store = cache.NewMemoryStore()
		} else {
			store = pg
		}
	} else {
		store = cache.NewMemoryStore()
	}
	defer store.Close()

	p, err := pipeline.New(ctx, cfg, store)
	if err != nil {
		logger.Log.Fatalf("管线初始化失败: %v", err)
	}

	req := &contracts.Request{
		Query:          query,
		MaxResults:     maxResults,
		ForceLocal:     forceLocal,
		OutputType:     outputType,
		IncludeDomains: splitDomains(include),
		ExcludeDomains: splitDomains(exclude),
	}

	resp, err := p.Run(ctx, req)
	if err != nil {
		logger.Log.Fatalf("请求失败: %v", err)
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		logger.Log.Fatalf("响应序列化失败: %v", err)
	}
	fmt.Println(string(out))
}

func splitDomains(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, d := range strings.Split(s, ",") {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}
