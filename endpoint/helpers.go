package endpoint

import (
	"errors"
	"fmt"

	"github.com/ariebrainware/physio-pain-assessment/gateway"
	"github.com/ariebrainware/physio-pain-assessment/middleware"
	"github.com/ariebrainware/physio-pain-assessment/model"
	"github.com/ariebrainware/physio-pain-assessment/session"
	"github.com/ariebrainware/physio-pain-assessment/util"
	"github.com/gin-gonic/gin"
)

var (
	errStoreUnavailable   = errors.New("session store is nil")
	errGatewayUnavailable = errors.New("analysis gateway is nil")
	errNotApplied         = errors.New("command not applied in the current state")
)

// ensureStore fetches the session store or writes a server error.
func ensureStore(c *gin.Context) (*session.Store, bool) {
	store, ok := middleware.GetStore(c)
	if !ok || store == nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Session store not available",
			Err: errStoreUnavailable,
		})
		return nil, false
	}
	return store, true
}

// ensureGateway fetches a configured gateway or writes the missing-credential error.
func ensureGateway(c *gin.Context) (*gateway.Gateway, bool) {
	gw, ok := middleware.GetGateway(c)
	if !ok || gw == nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Analysis gateway not available",
			Err: errGatewayUnavailable,
		})
		return nil, false
	}
	if !gw.Configured() {
		util.CallServerError(c, util.APIErrorParams{
			Msg: gateway.ErrMissingCredential.Error(),
			Err: gateway.ErrMissingCredential,
		})
		return nil, false
	}
	return gw, true
}

func requestMeta(c *gin.Context) util.RequestMeta {
	return util.RequestMeta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

// bindJSON binds the request body and writes a user error on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid request body",
			Err: err,
		})
		return false
	}
	return true
}

// respondGatewayError maps gateway failures to responses. The raw AI reply and transport
// details never reach the client.
func respondGatewayError(c *gin.Context, failureMsg string, err error) {
	switch {
	case errors.Is(err, gateway.ErrValidation):
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid analysis input", Err: err})
	case errors.Is(err, gateway.ErrMissingCredential):
		util.CallServerError(c, util.APIErrorParams{Msg: gateway.ErrMissingCredential.Error(), Err: gateway.ErrMissingCredential})
	case errors.Is(err, gateway.ErrInvalidResponseFormat):
		util.CallServerError(c, util.APIErrorParams{Msg: failureMsg, Err: gateway.ErrInvalidResponseFormat})
	default:
		util.CallServerError(c, util.APIErrorParams{Msg: failureMsg, Err: gateway.ErrUpstream})
	}
}

// respondStoreError maps session store validation errors to 400.
func respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrInvalidIntensity),
		errors.Is(err, session.ErrInvalidPainType),
		errors.Is(err, session.ErrInvalidView):
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid marker data", Err: err})
	default:
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update session", Err: err})
	}
}

func notApplied(c *gin.Context, msg string) {
	util.CallConflict(c, util.APIErrorParams{Msg: msg, Err: errNotApplied})
}

// validateMarkers checks client-supplied markers before they reach the gateway.
func validateMarkers(markers []model.PainMarker) error {
	for i, m := range markers {
		if !m.PainType.Valid() {
			return fmt.Errorf("painMarkers[%d]: %w", i, session.ErrInvalidPainType)
		}
		if !model.ValidIntensity(m.Intensity) {
			return fmt.Errorf("painMarkers[%d]: %w", i, session.ErrInvalidIntensity)
		}
		if m.BodyView != "" && !m.BodyView.Valid() {
			return fmt.Errorf("painMarkers[%d]: %w", i, session.ErrInvalidView)
		}
	}
	return nil
}

func countImages(markers []model.PainMarker) int {
	n := 0
	for _, m := range markers {
		n += len(m.Images)
	}
	return n
}
