package model

import "time"

// MovementTestResult is the outcome of one performed movement test.
// @Description Movement test outcome
type MovementTestResult struct {
	TestID      string    `json:"testId" example:"straight-leg-raise"`
	TestName    string    `json:"testName" example:"Straight Leg Raise (Lasègue Test)"`
	IsPositive  bool      `json:"isPositive"`
	Notes       string    `json:"notes,omitempty"`
	Images      []Image   `json:"images,omitempty"`
	CompletedAt time.Time `json:"completedAt"`
}

// Clone returns a copy that shares no slices with r.
func (r MovementTestResult) Clone() MovementTestResult {
	out := r
	out.Images = cloneImages(r.Images)
	return out
}

// GeneratedTest is a movement test proposed by the AI service for the reported symptoms.
// @Description AI generated movement test
type GeneratedTest struct {
	ID                 string   `json:"id" example:"seated-forward-bend"`
	Name               string   `json:"name" example:"Seated Forward Bend"`
	Purpose            string   `json:"purpose"`
	TargetMuscles      []string `json:"targetMuscles"`
	Instructions       []string `json:"instructions"`
	Duration           int      `json:"duration" example:"15"`
	Repetitions        *int     `json:"repetitions,omitempty" example:"3"`
	WhatToWatch        string   `json:"whatToWatch"`
	PositiveIndicators []string `json:"positiveIndicators"`
	NegativeIndicators []string `json:"negativeIndicators"`
}

// Clone returns a copy that shares no slices or pointers with g.
func (g GeneratedTest) Clone() GeneratedTest {
	out := g
	out.TargetMuscles = cloneStrings(g.TargetMuscles)
	out.Instructions = cloneStrings(g.Instructions)
	out.PositiveIndicators = cloneStrings(g.PositiveIndicators)
	out.NegativeIndicators = cloneStrings(g.NegativeIndicators)
	if g.Repetitions != nil {
		r := *g.Repetitions
		out.Repetitions = &r
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
