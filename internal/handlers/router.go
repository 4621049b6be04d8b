package handlers

import (
	"net/http"
	"time"

	"github.com/nicegilbz/stuhouses-sub000/internal/auth"
	"github.com/nicegilbz/stuhouses-sub000/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Router bundles everything the HTTP routes need
type Router struct {
	Tokens      *auth.TokenManager
	Limiter     *ratelimit.RateLimiter
	Properties  *PropertyHandler
	Bookings    *BookingHandler
	Payments    *PaymentHandler
	Webhooks    *WebhookHandler
	Admin       *AdminHandler
	Logger      *zap.Logger
	LogRequests bool
}

// Engine builds the gin engine. Extra middleware such as CORS runs after
// recovery and request logging and before every route.
func (r Router) Engine(middleware ...gin.HandlerFunc) *gin.Engine {
	useJSONFieldNames()

	engine := gin.New()
	engine.Use(gin.Recovery(), RequestLogger(r.Logger, r.LogRequests))
	engine.Use(middleware...)

	engine.GET("/health", healthCheck)

	authed := AuthRequired(r.Tokens)
	api := engine.Group("/api")
	{
		api.GET("/properties/:id", r.Properties.GetProperty)
		api.POST("/properties", authed, r.Properties.CreateProperty)
		api.PATCH("/properties/:id", authed, r.Properties.UpdateProperty)
		api.DELETE("/properties/:id", authed, r.Properties.DeleteProperty)

		api.POST("/bookings", authed, r.Bookings.CreateBooking)

		intents := []gin.HandlerFunc{authed}
		if r.Limiter != nil {
			intents = append(intents, RateLimit(r.Limiter))
		}
		intents = append(intents, r.Payments.CreateIntent)
		api.POST("/payments/intents", intents...)
		api.GET("/payments/:id", authed, r.Payments.GetPayment)

		api.POST("/webhooks/stripe", r.Webhooks.HandleStripe)
	}

	admin := engine.Group("/api/admin", authed, RequireAdmin())
	{
		admin.GET("/stats", r.Admin.GetStats)
		admin.GET("/activity", r.Admin.GetRecentActivity)
		admin.GET("/cities/audit", r.Admin.AuditCities)
		admin.GET("/ratelimit/stats", r.Admin.GetRateLimitStats)

		admin.POST("/payments/:id/refunds", r.Admin.CreateRefund)
		admin.GET("/payments/:id/refunds", r.Admin.ListRefunds)

		admin.POST("/search/reindex", r.Admin.ReindexSearch)

		admin.GET("/webhook-events/stats", r.Admin.GetWebhookEventStats)
		admin.POST("/cleanup/webhook-events", r.Admin.PruneWebhookEvents)
	}

	return engine
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}
