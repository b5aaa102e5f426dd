package model

import (
	"encoding/base64"
	"fmt"
	"time"
)

// PainType describes how the pain presents at a marker.
type PainType string

const (
	PainPoint     PainType = "point"
	PainRadiating PainType = "radiating"
	PainDiffuse   PainType = "diffuse"
	PainReferred  PainType = "referred"
)

// Valid reports whether p is one of the known pain types.
func (p PainType) Valid() bool {
	switch p {
	case PainPoint, PainRadiating, PainDiffuse, PainReferred:
		return true
	}
	return false
}

// BodyView is the orientation of the body diagram a marker was placed on.
type BodyView string

const (
	ViewAnterior  BodyView = "anterior"
	ViewPosterior BodyView = "posterior"
)

// Valid reports whether v is anterior or posterior.
func (v BodyView) Valid() bool {
	return v == ViewAnterior || v == ViewPosterior
}

// Intensity bounds for a pain marker.
const (
	MinIntensity = 1
	MaxIntensity = 10
)

// ValidIntensity reports whether i lies in [MinIntensity, MaxIntensity].
func ValidIntensity(i int) bool {
	return i >= MinIntensity && i <= MaxIntensity
}

// Position is a view-local 2D coordinate on the body diagram.
type Position struct {
	X float64 `json:"x" example:"120.5"`
	Y float64 `json:"y" example:"340"`
}

// SpreadArea is the optional geometry of radiating or diffuse pain.
type SpreadArea struct {
	StartX  float64  `json:"startX"`
	StartY  float64  `json:"startY"`
	EndX    float64  `json:"endX"`
	EndY    float64  `json:"endY"`
	RadiusX *float64 `json:"radiusX,omitempty"`
	RadiusY *float64 `json:"radiusY,omitempty"`
}

// Image is a photo attached to a marker, a test result or a follow-up question.
type Image struct {
	Base64     string `json:"base64"`
	MIMEType   string `json:"mimeType" example:"image/jpeg"`
	PreviewURL string `json:"previewUrl,omitempty"`
}

// Data decodes the base64 payload.
func (i Image) Data() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(i.Base64)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return b, nil
}

// PainMarker is one user-placed annotation of a pain location.
// @Description Pain marker placed on the body diagram
type PainMarker struct {
	ID         string      `json:"id" example:"5f0c1f8e-8d8a-4a57-9a51-1d0f1c9e2b11"`
	Position   Position    `json:"position"`
	Region     string      `json:"region" example:"lower-back-center"`
	BodyView   BodyView    `json:"bodyView" example:"posterior"`
	PainType   PainType    `json:"painType" example:"point"`
	Intensity  int         `json:"intensity" example:"7"`
	SpreadArea *SpreadArea `json:"spreadArea,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Images     []Image     `json:"images,omitempty"`
	Notes      string      `json:"notes,omitempty"`
}

// HasImages reports whether any photo is attached.
func (m PainMarker) HasImages() bool {
	return len(m.Images) > 0
}

// Clone returns a copy that shares no slices or pointers with m.
func (m PainMarker) Clone() PainMarker {
	out := m
	if m.SpreadArea != nil {
		sa := *m.SpreadArea
		if sa.RadiusX != nil {
			rx := *sa.RadiusX
			sa.RadiusX = &rx
		}
		if sa.RadiusY != nil {
			ry := *sa.RadiusY
			sa.RadiusY = &ry
		}
		out.SpreadArea = &sa
	}
	out.Images = cloneImages(m.Images)
	return out
}

func cloneImages(in []Image) []Image {
	if in == nil {
		return nil
	}
	return append([]Image(nil), in...)
}
