package endpoint

import (
	"github.com/ariebrainware/physio-pain-assessment/gateway"
	"github.com/ariebrainware/physio-pain-assessment/middleware"
	"github.com/ariebrainware/physio-pain-assessment/model"
	"github.com/ariebrainware/physio-pain-assessment/util"
	"github.com/gin-gonic/gin"
)

type analyzeRequest struct {
	PainMarkers         []model.PainMarker         `json:"painMarkers"`
	MovementTestResults []model.MovementTestResult `json:"movementTestResults"`
	UserContext         *model.UserContext         `json:"userContext"`
	InitialStory        string                     `json:"initialStory"`
	SaveToSession       bool                       `json:"saveToSession"`
}

type followUpRequest struct {
	Question            string                     `json:"question" example:"Can I keep running?"`
	PreviousAnalysis    *model.AnalysisResult      `json:"previousAnalysis"`
	PainMarkers         []model.PainMarker         `json:"painMarkers"`
	MovementTestResults []model.MovementTestResult `json:"movementTestResults"`
	Images              []model.Image              `json:"images"`
}

type followUpResponse struct {
	Response string `json:"response"`
}

type generateTestsRequest struct {
	PainMarkers   []model.PainMarker `json:"painMarkers"`
	InitialStory  string             `json:"initialStory"`
	SaveToSession bool               `json:"saveToSession"`
}

type sessionAnalyzeRequest struct {
	UserContext *model.UserContext `json:"userContext"`
}

// Analyze godoc
// @Summary      Analyze pain markers
// @Description  Request a preliminary assessment for the supplied pain markers and movement test results
// @Tags         Analysis
// @Accept       json
// @Produce      json
// @Param        request body analyzeRequest true "Pain data"
// @Success      200 {object} util.APIResponse{data=model.AnalysisResult} "Analysis completed"
// @Failure      400 {object} util.APIResponse "Pain markers are required"
// @Failure      429 {object} util.APIResponse "Too many requests"
// @Failure      500 {object} util.APIResponse "Gemini API key not configured or analysis failed"
// @Router       /api/analyze [post]
func Analyze(c *gin.Context) {
	gw, ok := ensureGateway(c)
	if !ok {
		return
	}
	var req analyzeRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := validateMarkers(req.PainMarkers); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid pain markers", Err: err})
		return
	}

	result, err := gw.Analyze(c.Request.Context(), gateway.AnalyzeInput{
		Markers:      req.PainMarkers,
		TestResults:  req.MovementTestResults,
		Context:      req.UserContext,
		InitialStory: req.InitialStory,
	})
	util.LogAIRequest(util.EventAnalysisRequested, util.AIRequestParams{
		Operation: "analyze",
		Markers:   len(req.PainMarkers),
		Images:    countImages(req.PainMarkers),
		Err:       err,
		Meta:      requestMeta(c),
	})
	if err != nil {
		respondGatewayError(c, "Failed to analyze symptoms", err)
		return
	}

	msg := "Analysis completed"
	if req.SaveToSession {
		msg = saveAnalysis(c, result)
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: msg, Data: result})
}

func saveAnalysis(c *gin.Context, result *model.AnalysisResult) string {
	store, ok := middleware.GetStore(c)
	if !ok || !store.SetGeminiAnalysis(result) {
		return "Analysis completed; no session in progress to save it to"
	}
	return "Analysis completed and saved to session"
}

// FollowUp godoc
// @Summary      Ask a follow-up question
// @Description  Ask a free-text question about a previous assessment, optionally with images
// @Tags         Analysis
// @Accept       json
// @Produce      json
// @Param        request body followUpRequest true "Follow-up question"
// @Success      200 {object} util.APIResponse{data=followUpResponse} "Follow-up answered"
// @Failure      400 {object} util.APIResponse "Question is required"
// @Failure      500 {object} util.APIResponse "Failed to process follow-up question"
// @Router       /api/follow-up [post]
func FollowUp(c *gin.Context) {
	gw, ok := ensureGateway(c)
	if !ok {
		return
	}
	var req followUpRequest
	if !bindJSON(c, &req) {
		return
	}

	reply, err := gw.AskFollowUp(c.Request.Context(), gateway.FollowUpInput{
		Question:         req.Question,
		PreviousAnalysis: req.PreviousAnalysis,
		Markers:          req.PainMarkers,
		TestResults:      req.MovementTestResults,
		Images:           req.Images,
	})
	util.LogAIRequest(util.EventFollowUpAsked, util.AIRequestParams{
		Operation: "follow-up",
		Markers:   len(req.PainMarkers),
		Images:    len(req.Images),
		Err:       err,
		Meta:      requestMeta(c),
	})
	if err != nil {
		respondGatewayError(c, "Failed to process follow-up question", err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Follow-up answered", Data: followUpResponse{Response: reply}})
}

// GenerateTests godoc
// @Summary      Generate movement tests
// @Description  Ask the AI service for 3-5 at-home movement tests for the supplied pain markers
// @Tags         Analysis
// @Accept       json
// @Produce      json
// @Param        request body generateTestsRequest true "Pain data"
// @Success      200 {object} util.APIResponse{data=[]model.GeneratedTest} "Tests generated"
// @Failure      400 {object} util.APIResponse "Pain markers are required"
// @Failure      500 {object} util.APIResponse "Failed to generate tests"
// @Router       /api/generate-tests [post]
func GenerateTests(c *gin.Context) {
	gw, ok := ensureGateway(c)
	if !ok {
		return
	}
	var req generateTestsRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := validateMarkers(req.PainMarkers); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid pain markers", Err: err})
		return
	}

	tests, err := gw.GenerateTests(c.Request.Context(), req.PainMarkers, req.InitialStory)
	util.LogAIRequest(util.EventTestsGenerated, util.AIRequestParams{
		Operation: "generate-tests",
		Markers:   len(req.PainMarkers),
		Images:    countImages(req.PainMarkers),
		Err:       err,
		Meta:      requestMeta(c),
	})
	if err != nil {
		respondGatewayError(c, "Failed to generate tests", err)
		return
	}

	msg := "Tests generated"
	if req.SaveToSession {
		if store, ok := middleware.GetStore(c); ok && store.SetSuggestedTests(tests) {
			msg = "Tests generated and saved to session"
		} else {
			msg = "Tests generated; no session in progress to save them to"
		}
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: msg, Data: tests})
}

// AnalyzeSession godoc
// @Summary      Analyze the current session
// @Description  Run the analysis on the current session's markers, tests and story and store the result
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        request body sessionAnalyzeRequest false "Optional user context"
// @Success      200 {object} util.APIResponse{data=model.AnalysisResult} "Analysis completed"
// @Failure      400 {object} util.APIResponse "Session has no pain markers"
// @Failure      409 {object} util.APIResponse "No session in progress"
// @Failure      500 {object} util.APIResponse "Failed to analyze symptoms"
// @Router       /api/session/analyze [post]
func AnalyzeSession(c *gin.Context) {
	gw, ok := ensureGateway(c)
	if !ok {
		return
	}
	store, ok := ensureStore(c)
	if !ok {
		return
	}
	var req sessionAnalyzeRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	current, exists := store.CurrentSession()
	if !exists || !current.InProgress() {
		notApplied(c, "No session in progress")
		return
	}

	result, err := gw.Analyze(c.Request.Context(), gateway.AnalyzeInput{
		Markers:      current.PainMarkers,
		TestResults:  current.MovementTests,
		Context:      req.UserContext,
		InitialStory: current.InitialStory,
	})
	util.LogAIRequest(util.EventAnalysisRequested, util.AIRequestParams{
		Operation: "analyze",
		SessionID: current.ID,
		Markers:   len(current.PainMarkers),
		Images:    countImages(current.PainMarkers),
		Err:       err,
		Meta:      requestMeta(c),
	})
	if err != nil {
		respondGatewayError(c, "Failed to analyze symptoms", err)
		return
	}
	if !store.SetGeminiAnalysisFor(current.ID, result) {
		notApplied(c, "Session is no longer in progress")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Analysis completed and saved to session", Data: result})
}

// GenerateSessionTests godoc
// @Summary      Generate movement tests for the current session
// @Description  Generate tests from the current session's markers and story and store them as suggested tests
// @Tags         Session
// @Produce      json
// @Success      200 {object} util.APIResponse{data=[]model.GeneratedTest} "Tests generated"
// @Failure      400 {object} util.APIResponse "Session has no pain markers"
// @Failure      409 {object} util.APIResponse "No session in progress"
// @Failure      500 {object} util.APIResponse "Failed to generate tests"
// @Router       /api/session/generate-tests [post]
func GenerateSessionTests(c *gin.Context) {
	gw, ok := ensureGateway(c)
	if !ok {
		return
	}
	store, ok := ensureStore(c)
	if !ok {
		return
	}

	current, exists := store.CurrentSession()
	if !exists || !current.InProgress() {
		notApplied(c, "No session in progress")
		return
	}

	tests, err := gw.GenerateTests(c.Request.Context(), current.PainMarkers, current.InitialStory)
	util.LogAIRequest(util.EventTestsGenerated, util.AIRequestParams{
		Operation: "generate-tests",
		SessionID: current.ID,
		Markers:   len(current.PainMarkers),
		Images:    countImages(current.PainMarkers),
		Err:       err,
		Meta:      requestMeta(c),
	})
	if err != nil {
		respondGatewayError(c, "Failed to generate tests", err)
		return
	}
	if !store.SetSuggestedTestsFor(current.ID, tests) {
		notApplied(c, "Session is no longer in progress")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Tests generated and saved to session", Data: tests})
}
