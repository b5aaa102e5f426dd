package model

import "time"

// SessionStatus is the lifecycle state of an assessment session.
type SessionStatus string

const (
	StatusInProgress SessionStatus = "in-progress"
	StatusCompleted  SessionStatus = "completed"
)

// AssessmentSession bundles the markers, test results and analysis of one assessment attempt.
// @Description Assessment session
type AssessmentSession struct {
	ID             string               `json:"id"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
	Status         SessionStatus        `json:"status" example:"in-progress"`
	InitialStory   string               `json:"initialStory,omitempty"`
	PainMarkers    []PainMarker         `json:"painMarkers"`
	SuggestedTests []GeneratedTest      `json:"suggestedTests,omitempty"`
	MovementTests  []MovementTestResult `json:"movementTests"`
	GeminiAnalysis *AnalysisResult      `json:"geminiAnalysis,omitempty"`
}

// NewSession returns an empty in-progress session.
func NewSession(id string, now time.Time) *AssessmentSession {
	return &AssessmentSession{
		ID:            id,
		CreatedAt:     now,
		UpdatedAt:     now,
		Status:        StatusInProgress,
		PainMarkers:   []PainMarker{},
		MovementTests: []MovementTestResult{},
	}
}

// InProgress reports whether the session still accepts changes.
func (s *AssessmentSession) InProgress() bool {
	return s != nil && s.Status == StatusInProgress
}

// MarkerIndex returns the position of the marker with the given id, or -1.
func (s *AssessmentSession) MarkerIndex(id string) int {
	for i := range s.PainMarkers {
		if s.PainMarkers[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of s. A nil session clones to nil.
func (s *AssessmentSession) Clone() *AssessmentSession {
	if s == nil {
		return nil
	}
	out := *s
	out.PainMarkers = make([]PainMarker, len(s.PainMarkers))
	for i, m := range s.PainMarkers {
		out.PainMarkers[i] = m.Clone()
	}
	out.MovementTests = make([]MovementTestResult, len(s.MovementTests))
	for i, r := range s.MovementTests {
		out.MovementTests[i] = r.Clone()
	}
	if s.SuggestedTests != nil {
		out.SuggestedTests = make([]GeneratedTest, len(s.SuggestedTests))
		for i, g := range s.SuggestedTests {
			out.SuggestedTests[i] = g.Clone()
		}
	}
	out.GeminiAnalysis = s.GeminiAnalysis.Clone()
	return &out
}
