package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/sem-inspector-go/internal/config"
	apperrors "github.com/anime-shed/sem-inspector-go/internal/errors"
	"github.com/anime-shed/sem-inspector-go/internal/logger"
	"github.com/anime-shed/sem-inspector-go/internal/service"
	"github.com/anime-shed/sem-inspector-go/pkg/models"
)

// StatsProvider exposes observer counters on /stats
type StatsProvider interface {
	GetMetrics() map[string]interface{}
}

func NewHandler(svc service.AssessmentService, stats StatsProvider, cfg *config.Config) http.Handler {
	r := gin.New()

	// Add middleware
	r.Use(
		gin.Recovery(),
		requestLogger(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck)
	r.GET("/stats", statsHandler(stats))
	r.POST("/assess", assessImage(svc, cfg))
	r.POST("/match", matchImages(svc, cfg))
	r.POST("/degrade", degradeImage(svc, cfg))

	return r
}

func assessImage(svc service.AssessmentService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		var req models.AssessRequest
		if !bindJSON(c, &req) {
			return
		}

		report, err := svc.Assess(ctx, req)
		if err != nil {
			respondError(c, determineStatusCode(err), "assessment failed", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"assessment_id":   report.ID,
			"test_url":        req.TestURL,
			"has_reference":   report.HasReference,
			"overall":         report.Overall,
			"processing_time": report.ProcessingTimeSec,
		}).Info("Image assessment completed successfully")

		c.JSON(http.StatusOK, report)
	}
}

func matchImages(svc service.AssessmentService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		var req models.MatchRequest
		if !bindJSON(c, &req) {
			return
		}

		cmp, err := svc.Match(ctx, req)
		if err != nil {
			respondError(c, determineStatusCode(err), "histogram match failed", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"a_url":    req.AURL,
			"b_url":    req.BURL,
			"method":   cmp.Method,
			"distance": cmp.Distance,
			"tier":     cmp.Tier,
		}).Info("Histogram match completed successfully")

		c.JSON(http.StatusOK, cmp)
	}
}

func degradeImage(svc service.AssessmentService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		var req models.DegradeRequest
		if !bindJSON(c, &req) {
			return
		}

		img, err := svc.Degrade(ctx, req)
		if err != nil {
			respondError(c, determineStatusCode(err), "degradation failed", err)
			return
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img.ToGray16()); err != nil {
			respondError(c, http.StatusInternalServerError, "failed to encode image",
				apperrors.NewInternalError("png encode", err))
			return
		}

		logger.WithFields(logrus.Fields{
			"url":   req.URL,
			"steps": len(req.Degradations),
			"seed":  req.Seed,
			"bytes": buf.Len(),
		}).Info("Degraded image generated")

		c.Data(http.StatusOK, "image/png", buf.Bytes())
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func statsHandler(stats StatsProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		if stats == nil {
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		c.JSON(http.StatusOK, stats.GetMetrics())
	}
}

// bindJSON decodes the body and answers 400, or 413 for oversized bodies
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "request body too large", err)
			return false
		}
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return false
	}
	return true
}

// Middleware and helper functions
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"user_agent":  c.Request.UserAgent(),
			"ip":          c.ClientIP(),
		}).Debug("Request handled")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err.Err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
