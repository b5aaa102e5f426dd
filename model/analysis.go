package model

import (
	"encoding/json"
	"fmt"
)

// Likelihood tiers used by the AI service for affected structures.
type Likelihood string

const (
	LikelihoodHigh   Likelihood = "high"
	LikelihoodMedium Likelihood = "medium"
	LikelihoodLow    Likelihood = "low"
)

// AffectedStructure is one anatomical structure the assessment considers involved.
type AffectedStructure struct {
	Structure  string     `json:"structure" example:"Lower back muscles"`
	Likelihood Likelihood `json:"likelihood" example:"high"`
	Reasoning  string     `json:"reasoning"`
}

// SuggestedTest is an additional test named by an analysis. The AI service answers
// either with a plain string or with a test object; both decode into this shape.
type SuggestedTest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UnmarshalJSON accepts "text" as well as {"name": ..., "purpose"/"description": ...}.
func (s *SuggestedTest) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*s = SuggestedTest{Name: text}
		return nil
	}

	var obj struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Purpose     string `json:"purpose"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("suggested test must be a string or an object: %w", err)
	}
	s.Name = obj.Name
	if s.Name == "" {
		s.Name = obj.ID
	}
	s.Description = obj.Description
	if s.Description == "" {
		s.Description = obj.Purpose
	}
	return nil
}

// AnalysisResult is the preliminary assessment returned by the AI service.
// It is stored verbatim on the session.
// @Description AI preliminary assessment
type AnalysisResult struct {
	PreliminaryAssessment    string              `json:"preliminaryAssessment"`
	AffectedStructures       []AffectedStructure `json:"affectedStructures"`
	RecommendedNextSteps     []string            `json:"recommendedNextSteps"`
	AdditionalTestsSuggested []SuggestedTest     `json:"additionalTestsSuggested,omitempty"`
	RedFlags                 []string            `json:"redFlags"`
	Disclaimer               string              `json:"disclaimer"`
}

// Clone returns a deep copy of a.
func (a *AnalysisResult) Clone() *AnalysisResult {
	if a == nil {
		return nil
	}
	out := *a
	if a.AffectedStructures != nil {
		out.AffectedStructures = append([]AffectedStructure(nil), a.AffectedStructures...)
	}
	if a.AdditionalTestsSuggested != nil {
		out.AdditionalTestsSuggested = append([]SuggestedTest(nil), a.AdditionalTestsSuggested...)
	}
	out.RecommendedNextSteps = cloneStrings(a.RecommendedNextSteps)
	out.RedFlags = cloneStrings(a.RedFlags)
	return &out
}

// UserContext is optional background about the person being assessed.
type UserContext struct {
	Age             int      `json:"age,omitempty" example:"42"`
	ActivityLevel   string   `json:"activityLevel,omitempty" example:"moderately active"`
	RelevantHistory []string `json:"relevantHistory,omitempty"`
}
