package session

import "github.com/ariebrainware/physio-pain-assessment/model"

// AnnotationMode is the state of the annotation sub-machine.
type AnnotationMode string

const (
	AnnotationIdle AnnotationMode = "idle"
	AnnotationNew  AnnotationMode = "new"
	AnnotationEdit AnnotationMode = "edit"
)

// PainDefaults are carried into the next annotation so repeated entries are fast.
type PainDefaults struct {
	PainType  model.PainType `json:"painType"`
	Intensity int            `json:"intensity"`
}

var initialDefaults = PainDefaults{PainType: model.PainPoint, Intensity: 5}

// PendingAnnotation is the tuple held while the user is placing or editing a marker.
type PendingAnnotation struct {
	Mode            AnnotationMode `json:"mode"`
	Position        model.Position `json:"position"`
	Region          string         `json:"region"`
	Defaults        PainDefaults   `json:"defaults"`
	EditingMarkerID string         `json:"editingMarkerId,omitempty"`
}

// MarkerInput carries the fields a user confirms when committing an annotation.
type MarkerInput struct {
	PainType   model.PainType
	Intensity  int
	Images     []model.Image
	Notes      string
	SpreadArea *model.SpreadArea
}

func (in MarkerInput) validate() error {
	if !in.PainType.Valid() {
		return ErrInvalidPainType
	}
	if !model.ValidIntensity(in.Intensity) {
		return ErrInvalidIntensity
	}
	return nil
}

// MarkerPatch lists the fields UpdatePainMarker may overwrite; nil fields are left alone.
type MarkerPatch struct {
	Position   *model.Position
	Region     *string
	BodyView   *model.BodyView
	PainType   *model.PainType
	Intensity  *int
	SpreadArea *model.SpreadArea
	Notes      *string
}

func (p MarkerPatch) validate() error {
	if p.PainType != nil && !p.PainType.Valid() {
		return ErrInvalidPainType
	}
	if p.Intensity != nil && !model.ValidIntensity(*p.Intensity) {
		return ErrInvalidIntensity
	}
	if p.BodyView != nil && !p.BodyView.Valid() {
		return ErrInvalidView
	}
	return nil
}
