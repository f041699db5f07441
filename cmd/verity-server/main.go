package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/go-kratos/kratos/v2"
	klog "github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/verity/internal/cache"
	"github.com/iWorld-y/verity/internal/config"
	"github.com/iWorld-y/verity/internal/logger"
	"github.com/iWorld-y/verity/internal/pipeline"
	"github.com/iWorld-y/verity/internal/server"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name 是服务的名称
	Name string = "verity"
	// Version 是服务的版本号
	Version string
	// flagconf 是配置文件的路径命令行参数
	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(flagconf)
	if err != nil {
		log.Fatalf("无法加载配置文件: %v", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}

	ctx := context.Background()

	// 缓存后端：未启用或连接失败时退化为进程内缓存
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

	httpSrv := server.NewHTTPServer(&cfg.Server, p)

	app := kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Logger(klog.With(klog.NewStdLogger(os.Stdout),
			"ts", klog.DefaultTimestamp,
			"service.id", id,
			"service.name", Name,
			"service.version", Version,
		)),
		kratos.Server(httpSrv),
	)

	if err := app.Run(); err != nil {
		logger.Log.Fatalf("服务退出: %v", err)
	}
}
