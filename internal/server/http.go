// Package server 提供问答服务的 HTTP 入口，只做编解码与路由，不含业务逻辑。
package server

import (
	"encoding/json"
	"errors"
	nethttp "net/http"
	"time"

	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/verity/internal/config"
	"github.com/iWorld-y/verity/internal/contracts"
	"github.com/iWorld-y/verity/internal/logger"
	"github.com/iWorld-y/verity/internal/pipeline"
)

// NewHTTPServer 构建 kratos HTTP 服务并注册问答路由。
func NewHTTPServer(c *config.ServerConfig, p *pipeline.Pipeline) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.Addr != "" {
		opts = append(opts, http.Address(c.Addr))
	}
	if c.Timeout != "" {
		if d, err := time.ParseDuration(c.Timeout); err == nil {
			opts = append(opts, http.Timeout(d))
		}
	}

	srv := http.NewServer(opts...)

	srv.HandleFunc("/healthz", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ok"})
	})

	srv.HandleFunc("/api/answer", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		handleAnswer(w, r, p, false)
	})

	// 调试接口：同样的流程，返回无类型 JSON
	srv.HandleFunc("/api/answer/raw", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		handleAnswer(w, r, p, true)
	})

	return srv
}

func handleAnswer(w nethttp.ResponseWriter, r *nethttp.Request, p *pipeline.Pipeline, raw bool) {
	if r.Method != nethttp.MethodPost {
		writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req contracts.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, nethttp.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}

	if raw {
		resp, err := p.RunRaw(r.Context(), &req)
		if err != nil {
			writePipelineError(w, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, resp)
		return
	}

	resp, err := p.Run(r.Context(), &req)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, nethttp.StatusOK, resp)
}

func writePipelineError(w nethttp.ResponseWriter, err error) {
	status := nethttp.StatusInternalServerError
	if errors.Is(err, pipeline.ErrInvalidRequest) {
		status = nethttp.StatusBadRequest
	} else if errors.Is(err, pipeline.ErrGenerationFailed) {
		status = nethttp.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w nethttp.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Log.Warnf("响应写入失败: %v", err)
	}
}
