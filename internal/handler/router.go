package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/paiban/nurseshift/internal/config"
	"github.com/paiban/nurseshift/internal/metrics"
	"github.com/paiban/nurseshift/internal/middleware"
	"github.com/paiban/nurseshift/internal/service"
)

// HealthChecker 健康检查依赖，例如数据库连接
type HealthChecker interface {
	Health(ctx context.Context) error
}

// BuildInfo 构建信息
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// RouterOptions 路由依赖
type RouterOptions struct {
	Service *service.ScheduleService
	Metrics *metrics.Metrics
	Health  HealthChecker // 可以为 nil
	API     config.APIConfig
	// MetricsPath 为空时不暴露指标端点
	MetricsPath string
	Build       BuildInfo
}

// NewRouter 创建路由，挂载中间件和所有端点
func NewRouter(opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// 中间件执行顺序：请求ID -> 日志 -> recover -> 限流 -> cors
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestContext)
	r.Use(middleware.Logger(opts.Metrics))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RateLimit(middleware.NewRateLimiter(opts.API.RateLimit)))
	if opts.API.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.API.CORS.Origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id", "Content-Disposition"},
			MaxAge:         300,
		}))
	}

	// 系统端点
	r.Get("/health", healthHandler(opts.Health))
	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, opts.Build)
	})
	if opts.MetricsPath != "" && opts.Metrics != nil {
		r.Handle(opts.MetricsPath, opts.Metrics.Handler())
	}

	h := NewScheduleHandler(opts.Service)
	r.Route("/api/v1", func(r chi.Router) {
		if opts.API.Timeout > 0 {
			r.Use(chimw.Timeout(opts.API.Timeout))
		}

		r.Route("/schedule", func(r chi.Router) {
			r.Post("/drafts", h.GenerateDrafts)
			r.Get("/drafts/{id}/export", h.ExportDraft)
			r.Get("/batches", h.ListBatches)
			r.Get("/batches/{id}", h.GetBatch)
			r.Post("/batches/{id}/select", h.SelectDraft)
			r.Get("/batches/{id}/export", h.ExportSelected)
			r.Post("/validate", h.Validate)
		})
		r.Post("/matrix/parse", h.ParseMatrix)
		r.Post("/roster/parse", h.ParseRoster)
	})

	return r
}

// healthHandler 健康检查，依赖不可用时返回 503
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := checker.Health(ctx); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
					"status":  "unavailable",
					"service": "nurseshift",
					"error":   err.Error(),
				})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"service": "nurseshift",
		})
	}
}
