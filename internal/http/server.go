package http

import (
	"context"
	"net/http"
	"time"

	"github.com/jmehdipour/churn-predictor/internal/classifier"
	"github.com/jmehdipour/churn-predictor/internal/config"
	"github.com/jmehdipour/churn-predictor/internal/http/middleware"
	"github.com/jmehdipour/churn-predictor/internal/metrics"
	"github.com/jmehdipour/churn-predictor/internal/repository"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps are the optional collaborators of the API. Any of them may be nil:
// a nil Model answers 503 on /predict, a nil Redis disables caching and rate limiting.
type Deps struct {
	Model    *classifier.Model
	Redis    *redis.Client
	Features repository.CHFeaturesRepository
	Log      *zap.Logger
}

type Server struct {
	e   *echo.Echo
	log *zap.Logger
}

func NewServer(cfg config.Config, d Deps) *Server {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}

	var cache repository.PredictionCache
	if d.Redis != nil {
		cache = repository.NewGuardedCache(
			repository.NewRedisPredictionCache(d.Redis, cfg.PredictionCache.TTL),
			cfg.PredictionCache.FailThreshold,
			cfg.PredictionCache.OpenFor,
		)
	}

	// echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/", rootHandler(d.Model))

	// middlewares
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          d.Redis,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:ip:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	e.POST("/predict", predictHandler(d.Model, cache), rlMW)
	e.GET("/reports/labels", labelCountsHandler(d.Features), rlMW)

	return &Server{e: e, log: d.Log}
}

func rootHandler(m *classifier.Model) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m == nil {
			return c.JSON(http.StatusOK, map[string]string{"status": "error", "message": "Model could not be loaded!"})
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"message": "Churn Prediction API is running!",
			"model":   m.Version,
		})
	}
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Start(addr string) error {
	s.log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
