package middleware

import (
	"net/http"

	"github.com/ariebrainware/physio-pain-assessment/catalog"
	"github.com/ariebrainware/physio-pain-assessment/gateway"
	"github.com/ariebrainware/physio-pain-assessment/session"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	storeKey         = "session_store"
	gatewayKey       = "analysis_gateway"
	regionsKey       = "region_catalog"
	movementTestsKey = "movement_catalog"
	dbKey            = "db"
)

// CORSMiddleware configures CORS headers for incoming requests.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		c.Writer.Header().Set("Content-Type", "application/json")

		// For preflight requests, respond with 204 and abort further processing.
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// AppState is the set of long-lived dependencies handlers read from the request context.
type AppState struct {
	Store         *session.Store
	Gateway       *gateway.Gateway
	Regions       *catalog.RegionCatalog
	MovementTests *catalog.MovementCatalog
	DB            *gorm.DB
}

// AppStateMiddleware stores the application dependencies in the gin context.
// Nil catalogs fall back to the built-in tables.
func AppStateMiddleware(state AppState) gin.HandlerFunc {
	if state.Regions == nil {
		state.Regions = catalog.DefaultRegions()
	}
	if state.MovementTests == nil {
		state.MovementTests = catalog.DefaultMovementTests()
	}
	return func(c *gin.Context) {
		if state.Store != nil {
			c.Set(storeKey, state.Store)
		}
		if state.Gateway != nil {
			c.Set(gatewayKey, state.Gateway)
		}
		c.Set(regionsKey, state.Regions)
		c.Set(movementTestsKey, state.MovementTests)
		if state.DB != nil {
			c.Set(dbKey, state.DB)
		}
		c.Next()
	}
}

func getFromContext[T any](c *gin.Context, key string) (T, bool) {
	var zero T
	v, exists := c.Get(key)
	if !exists {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// GetStore returns the session store set by AppStateMiddleware.
func GetStore(c *gin.Context) (*session.Store, bool) {
	return getFromContext[*session.Store](c, storeKey)
}

// GetGateway returns the analysis gateway set by AppStateMiddleware.
func GetGateway(c *gin.Context) (*gateway.Gateway, bool) {
	return getFromContext[*gateway.Gateway](c, gatewayKey)
}

// GetRegions returns the region catalog.
func GetRegions(c *gin.Context) *catalog.RegionCatalog {
	if r, ok := getFromContext[*catalog.RegionCatalog](c, regionsKey); ok {
		return r
	}
	return catalog.DefaultRegions()
}

// GetMovementTests returns the movement test catalog.
func GetMovementTests(c *gin.Context) *catalog.MovementCatalog {
	if m, ok := getFromContext[*catalog.MovementCatalog](c, movementTestsKey); ok {
		return m
	}
	return catalog.DefaultMovementTests()
}

// GetDB returns the gorm handle, if one was configured.
func GetDB(c *gin.Context) *gorm.DB {
	db, _ := getFromContext[*gorm.DB](c, dbKey)
	return db
}
