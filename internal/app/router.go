package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"carpool/internal/config"
	"carpool/internal/handler"
	"carpool/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TripHandler         *handler.TripHandler
	RequestHandler      *handler.RequestHandler
	ConfirmationHandler *handler.ConfirmationHandler
	RatingHandler       *handler.RatingHandler
	Auth                config.AuthConfig
	RedisClient         *redis.Client
	IdempotencyTTL      time.Duration
	NewRelicApp         *newrelic.Application
	Logger              logrus.FieldLogger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(deps.Logger))
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(middleware.AuthRequired(deps.Auth.JWTSecret, deps.Auth.CookieName))
	if deps.RedisClient != nil {
		api.Use(middleware.IdempotencyMiddleware(deps.RedisClient, deps.IdempotencyTTL, deps.Logger))
	}
	{
		// Trip routes.
		trips := api.Group("/trips")
		{
			trips.POST("", deps.TripHandler.CreateTrip)
			trips.GET("", deps.TripHandler.ListTrips)
			trips.GET("/search", deps.TripHandler.SearchTrips)
			trips.GET("/my-trips", deps.TripHandler.MyTrips)
			trips.GET("/:tripId", deps.TripHandler.GetTrip)
			trips.PUT("/:tripId", deps.TripHandler.UpdateTrip)
			trips.DELETE("/:tripId", deps.TripHandler.DeleteTrip)

			trips.POST("/:tripId/requests", deps.RequestHandler.ApplyForTrip)
			trips.GET("/:tripId/requests", deps.RequestHandler.ListTripRequests)
			trips.PUT("/:tripId/requests/:requestId", deps.RequestHandler.DecideRequest)

			trips.POST("/:tripId/confirm-driver", deps.ConfirmationHandler.ConfirmAsDriver)
			trips.POST("/:tripId/confirm-passenger", deps.ConfirmationHandler.ConfirmAsPassenger)

			trips.POST("/:tripId/rate-driver", deps.RatingHandler.RateDriver)
			trips.POST("/:tripId/rate-passenger", deps.RatingHandler.RatePassenger)
		}

		// User routes.
		users := api.Group("/users")
		{
			users.GET("/requests", deps.RequestHandler.ListMyRequests)
			users.GET("/:userId/ratings", deps.RatingHandler.UserRatings)
		}
	}

	return router
}
