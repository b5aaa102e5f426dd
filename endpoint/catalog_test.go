package endpoint

import (
	"net/http"
	"testing"

	"github.com/ariebrainware/physio-pain-assessment/catalog"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListRegions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w, resp := serveHandler(t, apiCall{
		method:  http.MethodGet,
		route:   "/api/regions",
		path:    "/api/regions",
		handler: ListRegions,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	data := resp.Data.([]interface{})
	assert.Len(t, data, catalog.DefaultRegions().Len())
}

func TestGetRegion(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w, resp := serveHandler(t, apiCall{
		method:  http.MethodGet,
		route:   "/api/regions/:id",
		path:    "/api/regions/lower-back-center",
		handler: GetRegion,
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "lower-back-center", data["id"])
	assert.Equal(t, []interface{}{"Erector spinae", "Multifidus"}, data["primary"])
}

func TestGetRegion_Unknown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w, _ := serveHandler(t, apiCall{
		method:  http.MethodGet,
		route:   "/api/regions/:id",
		path:    "/api/regions/left-elbow-tip",
		handler: GetRegion,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListMovementTests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name  string
		path  string
		count int
	}{
		{"all", "/api/movement-tests", catalog.DefaultMovementTests().Len()},
		{"filtered", "/api/movement-tests?region=lower-back-center", len(catalog.DefaultMovementTests().TestsForRegions([]string{"lower-back-center"}))},
		{"unknown region", "/api/movement-tests?region=nowhere", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := serveHandler(t, apiCall{
				method:  http.MethodGet,
				route:   "/api/movement-tests",
				path:    tt.path,
				handler: ListMovementTests,
			})
			require.Equal(t, http.StatusOK, w.Code)
			assert.Len(t, resp.Data, tt.count)
		})
	}
}

func TestGetMovementTest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w, resp := serveHandler(t, apiCall{
		method:  http.MethodGet,
		route:   "/api/movement-tests/:id",
		path:    "/api/movement-tests/slump-test",
		handler: GetMovementTest,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Slump Test", resp.Data.(map[string]interface{})["name"])

	w, _ = serveHandler(t, apiCall{
		method:  http.MethodGet,
		route:   "/api/movement-tests/:id",
		path:    "/api/movement-tests/missing",
		handler: GetMovementTest,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterRoutes_AIRoutesAreLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, func(c *gin.Context) {
		c.AbortWithStatus(http.StatusTooManyRequests)
	})

	registered := map[string]bool{}
	for _, route := range r.Routes() {
		if route.Method == http.MethodPost {
			registered[route.Path] = true
		}
	}
	for _, path := range AIRoutes {
		assert.True(t, registered[path], "%s not registered", path)
		w, _, err := serve(r, apiCall{method: http.MethodPost, path: path, body: map[string]interface{}{}})
		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, w.Code, path)
	}

	w, _, err := serve(r, apiCall{method: http.MethodGet, path: "/api/regions"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, w.Code)
}
