package endpoint

import (
	"errors"
	"strings"

	"github.com/ariebrainware/physio-pain-assessment/middleware"
	"github.com/ariebrainware/physio-pain-assessment/model"
	"github.com/ariebrainware/physio-pain-assessment/session"
	"github.com/ariebrainware/physio-pain-assessment/util"
	"github.com/gin-gonic/gin"
)

type storyRequest struct {
	Story string `json:"story" example:"It started after I moved house"`
}

type viewRequest struct {
	View model.BodyView `json:"view" binding:"required" example:"posterior"`
}

type annotationRequest struct {
	X      float64 `json:"x" example:"120"`
	Y      float64 `json:"y" example:"340"`
	Region string  `json:"region" binding:"required" example:"lower-back-center"`
}

type markerRequest struct {
	PainType   model.PainType    `json:"painType" example:"point"`
	Intensity  int               `json:"intensity" example:"6"`
	Images     []model.Image     `json:"images"`
	Notes      string            `json:"notes"`
	SpreadArea *model.SpreadArea `json:"spreadArea"`
}

func (r markerRequest) input() session.MarkerInput {
	return session.MarkerInput{
		PainType:   r.PainType,
		Intensity:  r.Intensity,
		Images:     r.Images,
		Notes:      util.NormalizeText(r.Notes),
		SpreadArea: r.SpreadArea,
	}
}

type markerPatchRequest struct {
	Position   *model.Position   `json:"position"`
	Region     *string           `json:"region"`
	BodyView   *model.BodyView   `json:"bodyView"`
	PainType   *model.PainType   `json:"painType"`
	Intensity  *int              `json:"intensity"`
	SpreadArea *model.SpreadArea `json:"spreadArea"`
	Notes      *string           `json:"notes"`
}

type movementTestRequest struct {
	TestID     string        `json:"testId" binding:"required" example:"slump-test"`
	TestName   string        `json:"testName" example:"Slump Test"`
	IsPositive bool          `json:"isPositive"`
	Notes      string        `json:"notes"`
	Images     []model.Image `json:"images"`
}

type sessionListResponse struct {
	Total    int                       `json:"total"`
	Sessions []model.AssessmentSession `json:"sessions"`
}

// StartSession godoc
// @Summary      Start a new assessment session
// @Description  Replace the current session with a fresh one; history is untouched
// @Tags         Session
// @Produce      json
// @Success      201 {object} util.APIResponse{data=model.AssessmentSession} "Session started"
// @Router       /api/session [post]
func StartSession(c *gin.Context) {
	store, ok := ensureStore(c)
	if !ok {
		return
	}
	sess := store.StartNewSession()
	util.LogSessionEvent(util.EventSessionStarted, sess.ID, requestMeta(c), "Session started")
	util.CallCreated(c, util.APISuccessParams{Msg: "Session started", Data: sess})
}

// GetSession godoc
// @Summary      Get the workflow state
// @Description  Current session, view, selection, pending annotation and pain defaults
// @Tags         Session
// @Produce      json
// @Success      200 {object} util.APIResponse{data=session.Snapshot} "Session state"
// @Router       /api/session [get]
func GetSession(c *gin.Context) {
	store, ok := ensureStore(c)
	if !ok {
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Session state", Data: store.Snapshot()})
}

// SetStory godoc
// @Summary      Set the initial story
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        request body storyRequest true "Free-text description"
// @Success      200 {object} util.APIResponse{data=session.Snapshot} "Story saved"
// @Failure      409 {object} util.APIResponse "No session in progress"
// @Router       /api/session/story [put]
func SetStory(c *gin.Context) {
	store, ok := ensureStore(c)
	if !ok {
		return
	}
	var req storyRequest
	if !bindJSON(c, &req) {
		return
	}
	if !store.SetInitialStory(strings.TrimSpace(req.Story)) {
		notApplied(c, "No session in progress")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Story saved", Data: store.Snapshot()})
}

// SetView godoc
// @Summary      Switch the body view
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        request body viewRequest true "anterior or posterior"
// @Success      200 {object} util.APIResponse{data=session.Snapshot} "View changed"
// @Failure      400 {object} util.APIResponse "Invalid view"
// @Router       /api/session/view [put]
func SetView(c *gin.Context) {
	store, ok := ensureStore(c)
	if !ok {
		return
	}
	var req viewRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := store.SetCurrentView(req.View); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid view", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "View changed", Data: store.Snapshot()})
}

// StartAnnotation godoc
// @Summary      Start annotating a point
// @Description  Enter annotation of a new marker; any pending annotation is replaced
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        request body annotationRequest true "Point and region"
// @Success      200 {object} util.APIResponse{data=session.PendingAnnotation} "Annotation started"
// @Router       /api/session/annotation [post]
func StartAnnotation(c *gin.Context) {
	store, ok := ensureStore(c)
	if !ok {
		return
	}
	var req annotationRequest
	if !bindJSON(c, &req) {
		return
	}
	store.StartAnnotation(req.X, req.Y, req.Region)
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Annotation started", Data: store.PendingAnnotation()})
}

// CancelAnnotation godoc
// @Summary      Cancel the pending annotation
// @Tags         Session
// @Produce      json
// @Success      200 {object} util.APIResponse "Annotation cancelled"
// @Router       /api/session/annotation [delete]
func CancelAnnotation(c *gin.Context) {
	store, ok := ensureStore(c)
	if !ok {
		return
	}
	store.CancelAnnotation()
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Annotation cancelled", Data: store.Snapshot()})
}

// AddMarker godoc
// @Summary      Commit a new pain marker
// @Description  Commit the pending new annotation into a marker on the current session
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        request body markerRequest true "Marker details"
// @Success      200 {object} util.APIResponse{data=model.PainMarker} "Marker added"
// @Failure      400 {object} util.APIResponse "Invalid marker data"
// @Failure      409 {object} util.APIResponse "No annotation pending"
// @Router       /api/session/markers [post]
func AddMarker(c *gin.Context) {
	store, ok := ensureStore(c)
	if !ok {
		return
	}
	var req markerRequest
	if !bindJSON(c, &req) {
		return
	}
	marker, applied, err := store.AddPainMarker(req.input())
	if err != nil {
		respondStoreError(c, err)
		return
	}
	if !applied {
		notApplied(c, "No new annotation pending on an in-progress session")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Marker added", Data: marker})
}

// UpdateMarker godoc
// @Summary      Patch a pain marker
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        id path string true "Marker ID"
// @Param        request body markerPatchRequest true "Fields to overwrite"
// @Success      200 {object} util.APIResponse{data=session.Snapshot} "Marker updated"
// @Failure      400 {object} util.APIResponse "Invalid marker data"
// @Failure      409 {object} util.APIResponse "Marker not found"
// @Router       /api/session/markers/{id} [patch]
func UpdateMarker(c *gin.Context) {
	store, ok := ensureStore(c)
	if !ok {
		return
	}
	var req markerPatchRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Notes != nil {
		notes := util.NormalizeText(*req.Notes)
		req.Notes = &notes
	}
	applied, err := store.UpdatePainMarker(c.Param("id"), session.MarkerPatch{
		Position:   req.Position,
		Region:     req.Region,
		BodyView:   req.BodyView,
		PainType:   req.PainType,
		Intensity:  req.Intensity,
		SpreadArea: req.SpreadArea,
		Notes:      req.Notes,
	})
	if err != nil {
		respondStoreError(c, err)
		return
	}
	if !applied {
		notApplied(c, "Marker not found on an in-progress session")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Marker updated", Data: store.Snapshot()})
}

// EditMarker godoc
// @Summary      Start editing a marker
// @Tags         Session
// @Produce      json
// @Param        id path string true "Marker ID"
// @Success      200 {object} util.APIResponse{data=session.PendingAnnotation} "Editing marker"
// @Failure      409 {object} util.APIResponse "Marker not found"
// @Router       /api/session/markers/{id}/edit [post]
func EditMarker(c *gin.Context) {
	store, ok := ensureStore(c)
	if !ok {
		return
	}
	if !store.StartEditingMarker(c.Param("id")) {
		notApplied(c, "Marker not found on an in-progress session")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Editing marker", Data: store.PendingAnnotation()})
}

// SaveEditedMarker godoc
// @Summary      Save the marker being edited
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        request body markerRequest true "Marker details"
// @Success      200 {object} util.APIResponse{data=model.PainMarker} "Marker saved"
// @Failure      400 {object} util.APIResponse "Invalid marker data"
// @Failure      409 {object} util.APIResponse "No marker being edited"
// @Router       /api/session/markers/edit [put]
func SaveEditedMarker(c *gin.Context) {
	store, ok := ensureStore(c)
	if !ok {
		return
	}
	var req markerRequest
	if !bindJSON(c, &req) {
		return
	}
	marker, applied, err := store.SaveEditedMarker(req.input())
	if err != nil {
		respondStoreError(c, err)
		return
	}
	if !applied {
		notApplied(c, "No marker being edited")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Marker saved", Data: marker})
}

// SelectMarker godoc
// @Summary      Select a marker
// @Tags         Session
// @Produce      json
// @Param        id path string true "Marker ID"
// @Success      200 {object} util.APIResponse{data=session.Snapshot} "Marker selected"
// @Failure      409 {object} util.APIResponse "Marker not found"
// @Router       /api/session/markers/{id}/select [post]
func SelectMarker(c *gin.Context) {
	store, ok := ensureStore(c)
	if !ok {
		return
	}
	if !store.SelectMarker(c.Param("id")) {
		notApplied(c, "Marker not found")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Marker selected", Data: store.Snapshot()})
}

// RemoveMarker godoc
// @Summary      Remove a marker
// @Tags         Session
// @Produce      json
// @Param        id path string true "Marker ID"
// @Success      200 {object} util.APIResponse{data=session.Snapshot} "Marker removed"
// @Failure      409 {object} util.APIResponse "Marker not found"
// @Router       /api/session/markers/{id} [delete]
func RemoveMarker(c *gin.Context) {
	store, ok := ensureStore(c)
	if !ok {
		return
	}
	if !store.RemovePainMarker(c.Param("id")) {
		notApplied(c, "Marker not found on an in-progress session")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Marker removed", Data: store.Snapshot()})
}

// AddMovementTest godoc
// @Summary      Record a movement test result
// @Description  Appends a result; the same test may be recorded more than once. A missing test name is filled from the catalog.
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        request body movementTestRequest true "Test outcome"
// @Success      200 {object} util.APIResponse{data=session.Snapshot} "Test result recorded"
// @Failure      409 {object} util.APIResponse "No session in progress"
// @Router       /api/session/tests [post]
func AddMovementTest(c *gin.Context) {
	store, ok := ensureStore(c)
	if !ok {
		return
	}
	var req movementTestRequest
	if !bindJSON(c, &req) {
		return
	}
	name := req.TestName
	if name == "" {
		if t, found := middleware.GetMovementTests(c).ByID(req.TestID); found {
			name = t.Name
		}
	}
	result := model.MovementTestResult{
		TestID:     req.TestID,
		TestName:   name,
		IsPositive: req.IsPositive,
		Notes:      util.NormalizeText(req.Notes),
		Images:     req.Images,
	}
	if !store.AddMovementTestResult(result) {
		notApplied(c, "No session in progress")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Test result recorded", Data: store.Snapshot()})
}

// SetSuggestedTests godoc
// @Summary      Replace the suggested tests
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        request body []model.GeneratedTest true "Suggested tests"
// @Success      200 {object} util.APIResponse{data=session.Snapshot} "Suggested tests saved"
// @Failure      409 {object} util.APIResponse "No session in progress"
// @Router       /api/session/suggested-tests [put]
func SetSuggestedTests(c *gin.Context) {
	store, ok := ensureStore(c)
	if !ok {
		return
	}
	var tests []model.GeneratedTest
	if !bindJSON(c, &tests) {
		return
	}
	if !store.SetSuggestedTests(tests) {
		notApplied(c, "No session in progress")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Suggested tests saved", Data: store.Snapshot()})
}

// SetAnalysis godoc
// @Summary      Store an analysis result
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        request body model.AnalysisResult true "Analysis"
// @Success      200 {object} util.APIResponse{data=session.Snapshot} "Analysis saved"
// @Failure      409 {object} util.APIResponse "No session in progress"
// @Router       /api/session/analysis [put]
func SetAnalysis(c *gin.Context) {
	store, ok := ensureStore(c)
	if !ok {
		return
	}
	var result model.AnalysisResult
	if !bindJSON(c, &result) {
		return
	}
	if !store.SetGeminiAnalysis(&result) {
		notApplied(c, "No session in progress")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Analysis saved", Data: store.Snapshot()})
}

// CompleteSession godoc
// @Summary      Complete the current session
// @Description  Marks the session completed and appends it to the persisted history, once
// @Tags         Session
// @Produce      json
// @Success      200 {object} util.APIResponse{data=model.AssessmentSession} "Session completed"
// @Failure      409 {object} util.APIResponse "No session in progress"
// @Failure      500 {object} util.APIResponse "Failed to save session history"
// @Router       /api/session/complete [post]
func CompleteSession(c *gin.Context) {
	store, ok := ensureStore(c)
	if !ok {
		return
	}
	applied, err := store.CompleteSession(c.Request.Context())
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to save session history", Err: err})
		return
	}
	if !applied {
		notApplied(c, "No session in progress")
		return
	}
	current, _ := store.CurrentSession()
	util.LogSessionEvent(util.EventSessionCompleted, current.ID, requestMeta(c), "Session completed")
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Session completed", Data: current})
}

// ListSessions godoc
// @Summary      List completed sessions
// @Tags         History
// @Produce      json
// @Success      200 {object} util.APIResponse{data=sessionListResponse} "Sessions retrieved"
// @Router       /api/sessions [get]
func ListSessions(c *gin.Context) {
	store, ok := ensureStore(c)
	if !ok {
		return
	}
	sessions := store.Sessions()
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Sessions retrieved",
		Data: sessionListResponse{Total: len(sessions), Sessions: sessions},
	})
}

// LoadSession godoc
// @Summary      Load a session from history
// @Tags         History
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} util.APIResponse{data=model.AssessmentSession} "Session loaded"
// @Failure      404 {object} util.APIResponse "Session not found"
// @Router       /api/sessions/{id}/load [post]
func LoadSession(c *gin.Context) {
	store, ok := ensureStore(c)
	if !ok {
		return
	}
	if !store.LoadSession(c.Param("id")) {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Session not found", Err: errors.New("unknown session id")})
		return
	}
	current, _ := store.CurrentSession()
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Session loaded", Data: current})
}

// DeleteSession godoc
// @Summary      Delete a session
// @Description  Removes a session from history; deleting the current session clears it
// @Tags         History
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} util.APIResponse "Session deleted"
// @Failure      404 {object} util.APIResponse "Session not found"
// @Failure      500 {object} util.APIResponse "Failed to save session history"
// @Router       /api/sessions/{id} [delete]
func DeleteSession(c *gin.Context) {
	store, ok := ensureStore(c)
	if !ok {
		return
	}
	id := c.Param("id")
	applied, err := store.DeleteSession(c.Request.Context(), id)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to save session history", Err: err})
		return
	}
	if !applied {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Session not found", Err: errors.New("unknown session id")})
		return
	}
	util.LogSessionEvent(util.EventSessionDeleted, id, requestMeta(c), "Session deleted")
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Session deleted", Data: map[string]interface{}{"id": id}})
}
