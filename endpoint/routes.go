package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AIRoutes are the routes that call the AI service; each is registered as POST behind the rate limiter.
var AIRoutes = []string{
	"/api/analyze",
	"/api/follow-up",
	"/api/generate-tests",
	"/api/session/analyze",
	"/api/session/generate-tests",
}

// RegisterRoutes mounts every API route on r. aiLimiter wraps the routes that call the AI
// service; nil registers them unlimited.
func RegisterRoutes(r gin.IRouter, aiLimiter gin.HandlerFunc) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Physio pain assessment API"})
	})

	api := r.Group("/api")

	api.GET("/regions", ListRegions)
	api.GET("/regions/:id", GetRegion)
	api.GET("/movement-tests", ListMovementTests)
	api.GET("/movement-tests/:id", GetMovementTest)

	ai := api.Group("")
	if aiLimiter != nil {
		ai.Use(aiLimiter)
	}
	ai.POST("/analyze", Analyze)
	ai.POST("/follow-up", FollowUp)
	ai.POST("/generate-tests", GenerateTests)
	ai.POST("/session/analyze", AnalyzeSession)
	ai.POST("/session/generate-tests", GenerateSessionTests)

	sess := api.Group("/session")
	sess.GET("", GetSession)
	sess.POST("", StartSession)
	sess.PUT("/story", SetStory)
	sess.PUT("/view", SetView)
	sess.POST("/annotation", StartAnnotation)
	sess.DELETE("/annotation", CancelAnnotation)
	sess.POST("/markers", AddMarker)
	sess.PUT("/markers/edit", SaveEditedMarker)
	sess.PATCH("/markers/:id", UpdateMarker)
	sess.DELETE("/markers/:id", RemoveMarker)
	sess.POST("/markers/:id/edit", EditMarker)
	sess.POST("/markers/:id/select", SelectMarker)
	sess.POST("/tests", AddMovementTest)
	sess.PUT("/suggested-tests", SetSuggestedTests)
	sess.PUT("/analysis", SetAnalysis)
	sess.POST("/complete", CompleteSession)

	api.GET("/sessions", ListSessions)
	api.POST("/sessions/:id/load", LoadSession)
	api.DELETE("/sessions/:id", DeleteSession)
}
