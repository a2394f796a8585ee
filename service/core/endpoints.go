package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"gti/service/logging"
	sm "gti/service/models"
)

const (
	DefaultAddr = ":8080"
)

// ServerOptions are the http settings taken from the service config
type ServerOptions struct {
	Addr           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

func GetHttpServer(sc *ServiceContext, opts ServerOptions) *http.Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:3000"}
	}

	return &http.Server{
		Addr:           opts.Addr,
		Handler:        GetRouter(sc, opts.AllowedOrigins),
		ReadTimeout:    opts.ReadTimeout,
		WriteTimeout:   opts.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

// GetRouter builds every route, split out from the server so handlers can be tested directly
func GetRouter(sc *ServiceContext, allowedOrigins []string) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), logging.GinMiddleware(sc.Logger))

	engine.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	engine.GET("/api/ping", func(c *gin.Context) { ping(c, sc) })
	engine.GET("/api/settings/resources", func(c *gin.Context) { getSettingsResources(c, sc) })
	engine.POST("/api/index", func(c *gin.Context) { runIndex(c, sc) })
	engine.POST("/api/scenarios", func(c *gin.Context) { runScenarios(c, sc) })
	engine.POST("/api/performance", func(c *gin.Context) { getPerformance(c, sc) })
	engine.GET("/api/runs/:runKey", func(c *gin.Context) { getIndexRun(c, sc) })

	if sc.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(sc.Metrics.Handler()))
	}

	return engine
}

// forRequest scopes the service context to the request, a client hanging up cancels the work
func forRequest(c *gin.Context, sc *ServiceContext) *ServiceContext {
	rc := *sc
	rc.Context = c.Request.Context()
	return &rc
}

func ping(c *gin.Context, sc *ServiceContext) {
	rc := forRequest(c, sc)
	if err := rc.Store.Ping(rc.Context); err != nil {
		sc.Logger.Error().Err(err).Msg("database ping failed")
		c.JSON(http.StatusServiceUnavailable, sm.GetServiceResponseError("database unavailable"))
		return
	}
	if rc.Cache != nil {
		if err := rc.Cache.Ping(rc.Context); err != nil {
			sc.Logger.Warn().Err(err).Msg("cache ping failed")
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func getSettingsResources(c *gin.Context, sc *ServiceContext) {
	defaults := sc.DefaultSettings.WithDefaults()
	k, multiplier := defaults.PenaltyParams()

	res := sm.GetSettingsResources(sm.SettingsDefaults{
		Alignment:         string(defaults.Alignment),
		Order:             string(defaults.Order),
		Frequency:         string(defaults.Frequency),
		PenaltyK:          k,
		PenaltyMultiplier: multiplier,
		ScaleMin:          ScaleMin,
		ScaleMax:          ScaleMax,
	})
	c.JSON(http.StatusOK, sm.GetServiceResponseOk(&res))
}

func runIndex(c *gin.Context, sc *ServiceContext) {
	var req sm.IndexRequest
	if err := bindStrict(c, &req); err != nil {
		writeError(c, err)
		return
	}

	res, err := forRequest(c, sc).RunIndex(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sm.GetServiceResponseOk(res))
}

func runScenarios(c *gin.Context, sc *ServiceContext) {
	var req sm.ScenariosRequest
	if err := bindStrict(c, &req); err != nil {
		writeError(c, err)
		return
	}

	res, err := forRequest(c, sc).RunScenarioComparison(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sm.GetServiceResponseOk(res))
}

func getPerformance(c *gin.Context, sc *ServiceContext) {
	var req sm.PerformanceRequest
	if err := bindStrict(c, &req); err != nil {
		writeError(c, err)
		return
	}

	res, err := forRequest(c, sc).GetPerformance(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sm.GetServiceResponseOk(res))
}

func getIndexRun(c *gin.Context, sc *ServiceContext) {
	res, err := forRequest(c, sc).GetIndexRun(c.Param("runKey"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sm.GetServiceResponseOk(res))
}

// bindStrict decodes the json body, a field the request type does not declare is rejected
// instead of silently falling back to a default
func bindStrict(c *gin.Context, req any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func writeError(c *gin.Context, err error) {
	if errors.Is(err, ErrRunNotFound) {
		c.JSON(http.StatusNotFound, sm.GetServiceResponseError(err.Error()))
		return
	}

	var validationErrors validator.ValidationErrors
	if IsClientError(err) || errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, sm.GetServiceResponseError(err.Error()))
		return
	}
	c.JSON(http.StatusInternalServerError, sm.GetServiceResponseError(err.Error()))
}
