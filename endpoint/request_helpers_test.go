package endpoint

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ariebrainware/physio-pain-assessment/util"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// apiCall describes one request against the router. handler and route are only
// used by serveHandler, which mounts handler on route before sending.
type apiCall struct {
	method  string
	route   string
	path    string
	handler gin.HandlerFunc
	body    interface{}
	headers map[string]string
}

// serve sends call through r and decodes the APIResponse envelope. An empty
// body (an aborted request) leaves the envelope zero.
func serve(r http.Handler, call apiCall) (*httptest.ResponseRecorder, util.APIResponse, error) {
	var payload bytes.Buffer
	switch v := call.body.(type) {
	case nil:
	case string:
		payload.WriteString(v)
	default:
		if err := json.NewEncoder(&payload).Encode(v); err != nil {
			return nil, util.APIResponse{}, err
		}
	}

	req := httptest.NewRequest(call.method, call.path, &payload)
	if call.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range call.headers {
		req.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp util.APIResponse
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			return w, resp, err
		}
	}
	return w, resp, nil
}

// serveHandler mounts a single handler on a fresh test router and serves call.
func serveHandler(t *testing.T, call apiCall) (*httptest.ResponseRecorder, util.APIResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Handle(call.method, call.route, call.handler)
	w, resp, err := serve(r, call)
	require.NoError(t, err)
	return w, resp
}
