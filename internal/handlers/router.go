package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/config"
	"github.com/smarttransit/bus-booking-backend/internal/middleware"
)

// RouterDeps is everything the HTTP surface is built from
type RouterDeps struct {
	Payments  *PaymentHandler
	Webhooks  *WebhookHandler
	Tickets   *TicketHandler
	Fleet     *FleetHandler
	System    *SystemHandler
	Validator middleware.TokenValidator
	CORS      config.CORSConfig
	Logger    *logrus.Logger
}

// NewRouter builds the gin engine with middleware and all API routes
func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(d.Logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     d.CORS.AllowedOrigins,
		AllowMethods:     d.CORS.AllowedMethods,
		AllowHeaders:     d.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: !containsWildcard(d.CORS.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", d.System.Health)

	auth := middleware.AuthMiddleware(d.Validator, d.Logger)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", d.System.Health)

		v1.GET("/routes", d.Fleet.ListRoutes)
		v1.GET("/routes/:id", d.Fleet.GetRoute)
		v1.GET("/routes/:id/price", d.Payments.RoutePrice)
		v1.GET("/trips/:id/announcements", d.Fleet.ListAnnouncements)

		v1.POST("/payments/quote", d.Payments.Quote)
		v1.POST("/webhooks/payment", d.Webhooks.Receive)

		payments := v1.Group("/payments")
		payments.Use(auth)
		{
			payments.POST("/initiate", d.Payments.Initiate)
			payments.POST("/verify", d.Payments.Verify)
			payments.GET("/:reference/booking", d.Payments.LookupBooking)
		}

		tickets := v1.Group("/tickets")
		tickets.Use(auth)
		{
			tickets.GET("", d.Tickets.List)
			tickets.GET("/:id", d.Tickets.Get)
			tickets.GET("/:id/pdf", d.Tickets.PDF)
		}

		buses := v1.Group("/buses")
		buses.Use(auth)
		{
			buses.GET("", d.Fleet.ListBuses)
			buses.GET("/:id/trip", d.Fleet.CurrentTrip)
			buses.POST("/:id/nearby", d.Fleet.CheckNearby)
		}

		operator := v1.Group("/operator")
		operator.Use(auth, middleware.RequireRole(middleware.RoleOperator, middleware.RoleAdmin))
		{
			operator.GET("/routes", d.Fleet.ListOperatorRoutes)
			operator.POST("/routes", d.Fleet.CreateRoute)
			operator.PUT("/routes/:id", d.Fleet.UpdateRoute)
			operator.DELETE("/routes/:id", d.Fleet.DeleteRoute)

			operator.GET("/buses", d.Fleet.ListOperatorBuses)
			operator.POST("/buses", d.Fleet.CreateBus)
			operator.PUT("/buses/:id", d.Fleet.UpdateBus)
			operator.PUT("/buses/:id/location", d.Fleet.UpdateBusLocation)
			operator.GET("/buses/:id/trips", d.Fleet.ListBusTrips)
			operator.GET("/buses/:id/bookings", d.Fleet.ListBusBookings)

			operator.POST("/trips", d.Fleet.StartTrip)
			operator.PUT("/trips/:id/stage", d.Fleet.AdvanceStage)
			operator.PUT("/trips/:id/delay", d.Fleet.ReportDelay)
			operator.POST("/trips/:id/complete", d.Fleet.CompleteTrip)
			operator.POST("/trips/:id/announcements", d.Fleet.PostAnnouncement)
		}

		admin := v1.Group("/admin")
		admin.Use(auth, middleware.RequireRole(middleware.RoleAdmin))
		{
			admin.PUT("/buses/:id/suspension", d.Fleet.SetSuspension)
			admin.GET("/jobs", d.System.ListJobs)
			admin.POST("/jobs/sweep", d.System.RunSweep)
			admin.GET("/payments/:reference/audit", d.System.PaymentAudit)
		}
	}

	return router
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
