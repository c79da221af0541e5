package router

import (
	"net/http"

	"eamhc/config"
	"eamhc/controllers"
	dbpkg "eamhc/db"
	"eamhc/middleware"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies are the collaborators the routes are wired to. DB, Recorder
// and Gatherer may be nil.
type Dependencies struct {
	Bridge   Bridge
	DB       *gorm.DB
	Recorder controllers.Recorder
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// Bridge is what the routes need from emotion.Bridge.
type Bridge interface {
	controllers.Predictor
	controllers.BackendInfo
}

// Initialize wires all routes and middlewares.
func Initialize(r *gin.Engine, cfg config.Configuration, deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORSMiddleware(cfg.CorsOrigins...))
	r.Use(dbpkg.SetDBtoContext(deps.DB))

	health := controllers.NewHealthController(deps.DB, deps.Bridge)
	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.Use(Logger(logger))

	emotionCtl := controllers.NewEmotionController(deps.Bridge, deps.Recorder, logger)
	api.POST("/predict-emotion", emotionCtl.Predict)

	// Persistence (called by the client after a prediction)
	api.POST("/emotion-prediction", controllers.SavePrediction)

	// Read surfaces
	api.GET("/emotion/labels", controllers.GetLabels)
	api.GET("/emotion/user-predictions", controllers.GetUserPredictions)
	api.GET("/emotion/user-stats", controllers.GetUserStats)
	api.GET("/emotion/predictions/:id", controllers.GetPrediction)
	api.DELETE("/emotion/predictions/:id", controllers.DeletePrediction)
	api.GET("/emotion/dashboard/per-day", controllers.GetPredictionsPerDay)

	r.NoRoute(func(c *gin.Context) {
		controllers.RespondError(c, "route not found", http.StatusNotFound)
	})

	logger.Info("routes initialized")
}
