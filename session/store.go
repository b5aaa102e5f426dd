// Package session holds the assessment workflow state: the current session,
// the annotation sub-machine and the persisted history of completed sessions.
// Store is the only writer of that state.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ariebrainware/physio-pain-assessment/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Persister durably stores the session history list.
type Persister interface {
	LoadHistory(ctx context.Context) ([]model.AssessmentSession, error)
	SaveHistory(ctx context.Context, sessions []model.AssessmentSession) error
}

// Store serializes every mutation behind a mutex; callers never touch session fields directly.
type Store struct {
	mu sync.Mutex

	current  *model.AssessmentSession
	sessions []model.AssessmentSession

	view     model.BodyView
	selected string
	pending  *PendingAnnotation
	defaults PainDefaults

	persister Persister
	now       func() time.Time
	newID     func() string
	logger    *zap.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the uuid generator for sessions and markers.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithLogger sets the logger used for persistence diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New returns an empty store. A nil persister keeps history in memory only.
func New(p Persister, opts ...Option) *Store {
	s := &Store{
		sessions:  []model.AssessmentSession{},
		view:      model.ViewAnterior,
		defaults:  initialDefaults,
		persister: p,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns a store with history loaded from p.
func Open(ctx context.Context, p Persister, opts ...Option) (*Store, error) {
	s := New(p, opts...)
	if p == nil {
		return s, nil
	}
	history, err := p.LoadHistory(ctx)
	if err != nil {
		return nil, err
	}
	s.sessions = history
	s.logger.Info("session history loaded", zap.Int("sessions", len(history)))
	return s, nil
}

// StartNewSession replaces the current session with a fresh one. History is untouched.
func (s *Store) StartNewSession() model.AssessmentSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = model.NewSession(s.newID(), s.now())
	s.selected = ""
	s.pending = nil
	return *s.current.Clone()
}

// SetInitialStory stores the user's free-text description on the current session.
func (s *Store) SetInitialStory(story string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current.InProgress() {
		return false
	}
	s.current.InitialStory = story
	s.touch()
	return true
}

// SetCurrentView switches the diagram orientation used for new markers.
func (s *Store) SetCurrentView(view model.BodyView) error {
	if !view.Valid() {
		return ErrInvalidView
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = view
	return nil
}

// CurrentView returns the diagram orientation.
func (s *Store) CurrentView() model.BodyView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// StartAnnotation enters annotating(new) for the given point. Any pending tuple,
// including an unsaved edit, is overwritten.
func (s *Store) StartAnnotation(x, y float64, regionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = &PendingAnnotation{
		Mode:     AnnotationNew,
		Position: model.Position{X: x, Y: y},
		Region:   regionID,
		Defaults: s.defaults,
	}
}

// CancelAnnotation discards the pending tuple without touching the session.
func (s *Store) CancelAnnotation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// PendingAnnotation returns a copy of the pending tuple, or nil when idle.
func (s *Store) PendingAnnotation() *PendingAnnotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	p := *s.pending
	return &p
}

// AddPainMarker commits annotating(new) into a marker on the current session.
// It is not applied while idle, while editing, or without an in-progress session.
func (s *Store) AddPainMarker(in MarkerInput) (model.PainMarker, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current.InProgress() || s.pending == nil || s.pending.Mode != AnnotationNew {
		return model.PainMarker{}, false, nil
	}
	if err := in.validate(); err != nil {
		return model.PainMarker{}, false, err
	}

	marker := model.PainMarker{
		ID:         s.newID(),
		Position:   s.pending.Position,
		Region:     s.pending.Region,
		BodyView:   s.view,
		PainType:   in.PainType,
		Intensity:  in.Intensity,
		SpreadArea: in.SpreadArea,
		Timestamp:  s.now(),
		Images:     normalizeImages(in.Images),
		Notes:      strings.TrimSpace(in.Notes),
	}

	s.current.PainMarkers = append(s.current.PainMarkers, marker)
	s.touch()
	s.selected = marker.ID
	s.defaults = PainDefaults{PainType: in.PainType, Intensity: in.Intensity}
	s.pending = nil
	return marker.Clone(), true, nil
}

// StartEditingMarker enters annotating(edit) pre-filled from an existing marker.
func (s *Store) StartEditingMarker(markerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current.InProgress() {
		return false
	}
	i := s.current.MarkerIndex(markerID)
	if i < 0 {
		return false
	}
	m := s.current.PainMarkers[i]
	s.pending = &PendingAnnotation{
		Mode:            AnnotationEdit,
		Position:        m.Position,
		Region:          m.Region,
		Defaults:        PainDefaults{PainType: m.PainType, Intensity: m.Intensity},
		EditingMarkerID: m.ID,
	}
	s.selected = ""
	return true
}

// EditingMarker returns the marker targeted by annotating(edit), if any.
func (s *Store) EditingMarker() (model.PainMarker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil || s.pending.Mode != AnnotationEdit || s.current == nil {
		return model.PainMarker{}, false
	}
	i := s.current.MarkerIndex(s.pending.EditingMarkerID)
	if i < 0 {
		return model.PainMarker{}, false
	}
	return s.current.PainMarkers[i].Clone(), true
}

// SaveEditedMarker rewrites the edited marker's pain type, intensity, images and notes.
// Id, position, region, view and timestamp are preserved.
func (s *Store) SaveEditedMarker(in MarkerInput) (model.PainMarker, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current.InProgress() || s.pending == nil || s.pending.Mode != AnnotationEdit {
		return model.PainMarker{}, false, nil
	}
	if err := in.validate(); err != nil {
		return model.PainMarker{}, false, err
	}

	i := s.current.MarkerIndex(s.pending.EditingMarkerID)
	if i < 0 {
		// The target was removed while being edited.
		s.pending = nil
		return model.PainMarker{}, false, nil
	}

	m := &s.current.PainMarkers[i]
	m.PainType = in.PainType
	m.Intensity = in.Intensity
	m.Images = normalizeImages(in.Images)
	m.Notes = strings.TrimSpace(in.Notes)
	if in.SpreadArea != nil {
		m.SpreadArea = in.SpreadArea
	}
	s.touch()
	s.defaults = PainDefaults{PainType: in.PainType, Intensity: in.Intensity}
	s.pending = nil
	return m.Clone(), true, nil
}

// UpdatePainMarker overwrites the non-nil fields of patch on a marker.
func (s *Store) UpdatePainMarker(markerID string, patch MarkerPatch) (bool, error) {
	if err := patch.validate(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current.InProgress() {
		return false, nil
	}
	i := s.current.MarkerIndex(markerID)
	if i < 0 {
		return false, nil
	}
	m := &s.current.PainMarkers[i]
	if patch.Position != nil {
		m.Position = *patch.Position
	}
	if patch.Region != nil {
		m.Region = *patch.Region
	}
	if patch.BodyView != nil {
		m.BodyView = *patch.BodyView
	}
	if patch.PainType != nil {
		m.PainType = *patch.PainType
	}
	if patch.Intensity != nil {
		m.Intensity = *patch.Intensity
	}
	if patch.SpreadArea != nil {
		m.SpreadArea = patch.SpreadArea
	}
	if patch.Notes != nil {
		m.Notes = strings.TrimSpace(*patch.Notes)
	}
	s.touch()
	return true, nil
}

// RemovePainMarker deletes a marker and clears the selection if it pointed at it.
func (s *Store) RemovePainMarker(markerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current.InProgress() {
		return false
	}
	i := s.current.MarkerIndex(markerID)
	if i < 0 {
		return false
	}
	s.current.PainMarkers = append(s.current.PainMarkers[:i], s.current.PainMarkers[i+1:]...)
	if s.selected == markerID {
		s.selected = ""
	}
	s.touch()
	return true
}

// SelectMarker selects a marker of the current session; an empty id clears the selection.
func (s *Store) SelectMarker(markerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if markerID == "" {
		s.selected = ""
		return true
	}
	if s.current == nil || s.current.MarkerIndex(markerID) < 0 {
		return false
	}
	s.selected = markerID
	return true
}

// SelectedMarkerID returns the selected marker id or "".
func (s *Store) SelectedMarkerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// AddMovementTestResult appends a result. The same test may be recorded more than once.
func (s *Store) AddMovementTestResult(result model.MovementTestResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current.InProgress() {
		return false
	}
	if result.CompletedAt.IsZero() {
		result.CompletedAt = s.now()
	}
	s.current.MovementTests = append(s.current.MovementTests, result.Clone())
	s.touch()
	return true
}

// SetSuggestedTests replaces the AI-suggested tests wholesale.
func (s *Store) SetSuggestedTests(tests []model.GeneratedTest) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setSuggestedTests(tests)
}

// SetSuggestedTestsFor is SetSuggestedTests that only applies while sessionID is
// still the current session.
func (s *Store) SetSuggestedTestsFor(sessionID string, tests []model.GeneratedTest) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isCurrent(sessionID) {
		return false
	}
	return s.setSuggestedTests(tests)
}

func (s *Store) setSuggestedTests(tests []model.GeneratedTest) bool {
	if !s.current.InProgress() {
		return false
	}
	cloned := make([]model.GeneratedTest, len(tests))
	for i, t := range tests {
		cloned[i] = t.Clone()
	}
	s.current.SuggestedTests = cloned
	s.touch()
	return true
}

// SetGeminiAnalysis stores the AI analysis, overwriting any previous result.
func (s *Store) SetGeminiAnalysis(result *model.AnalysisResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setGeminiAnalysis(result)
}

// SetGeminiAnalysisFor is SetGeminiAnalysis that only applies while sessionID is
// still the current session.
func (s *Store) SetGeminiAnalysisFor(sessionID string, result *model.AnalysisResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isCurrent(sessionID) {
		return false
	}
	return s.setGeminiAnalysis(result)
}

func (s *Store) setGeminiAnalysis(result *model.AnalysisResult) bool {
	if !s.current.InProgress() || result == nil {
		return false
	}
	s.current.GeminiAnalysis = result.Clone()
	s.touch()
	return true
}

func (s *Store) isCurrent(sessionID string) bool {
	return s.current != nil && s.current.ID == sessionID
}

// CompleteSession marks the current session completed and appends a snapshot to the
// persisted history. The transition happens once per session: completing an already
// completed session is not applied, so history never holds duplicate entries.
// If persisting fails the store is left unchanged.
func (s *Store) CompleteSession(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current.InProgress() {
		return false, nil
	}

	completed := s.current.Clone()
	completed.Status = model.StatusCompleted
	completed.UpdatedAt = s.now()

	history := append(cloneSessions(s.sessions), *completed.Clone())
	if err := s.persist(ctx, history); err != nil {
		return false, err
	}
	s.current = completed
	s.sessions = history
	s.pending = nil
	return true, nil
}

// LoadSession makes a copy of a history entry the current session.
func (s *Store) LoadSession(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.sessions {
		if s.sessions[i].ID == sessionID {
			s.current = s.sessions[i].Clone()
			s.pending = nil
			s.selected = ""
			return true
		}
	}
	return false
}

// DeleteSession removes a session from history, and clears the current session when it is the one deleted.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]model.AssessmentSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if sess.ID != sessionID {
			kept = append(kept, sess)
		}
	}
	removed := len(kept) != len(s.sessions)
	clearsCurrent := s.current != nil && s.current.ID == sessionID
	if !removed && !clearsCurrent {
		return false, nil
	}

	if removed {
		if err := s.persist(ctx, kept); err != nil {
			return false, err
		}
		s.sessions = kept
	}
	if clearsCurrent {
		s.current = nil
		s.pending = nil
		s.selected = ""
	}
	return true, nil
}

// CurrentSession returns a copy of the current session.
func (s *Store) CurrentSession() (model.AssessmentSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return model.AssessmentSession{}, false
	}
	return *s.current.Clone(), true
}

// Sessions returns a copy of the history list.
func (s *Store) Sessions() []model.AssessmentSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSessions(s.sessions)
}

// CurrentMarkers returns the markers of the current session.
func (s *Store) CurrentMarkers() []model.PainMarker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return []model.PainMarker{}
	}
	return s.current.Clone().PainMarkers
}

// AffectedRegions returns the distinct regions of the current markers in first-seen order.
func (s *Store) AffectedRegions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []string{}
	if s.current == nil {
		return out
	}
	seen := map[string]struct{}{}
	for _, m := range s.current.PainMarkers {
		if _, ok := seen[m.Region]; ok {
			continue
		}
		seen[m.Region] = struct{}{}
		out = append(out, m.Region)
	}
	return out
}

// PainDefaults returns the defaults carried into the next annotation.
func (s *Store) PainDefaults() PainDefaults {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaults
}

// Snapshot is a read-only view of the whole store, used by the HTTP layer.
type Snapshot struct {
	CurrentSession   *model.AssessmentSession `json:"currentSession"`
	CurrentView      model.BodyView           `json:"currentView"`
	SelectedMarkerID string                   `json:"selectedMarkerId,omitempty"`
	Annotation       *PendingAnnotation       `json:"annotation,omitempty"`
	PainDefaults     PainDefaults             `json:"painDefaults"`
	HistoryCount     int                      `json:"historyCount"`
}

// Snapshot captures the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		CurrentSession:   s.current.Clone(),
		CurrentView:      s.view,
		SelectedMarkerID: s.selected,
		PainDefaults:     s.defaults,
		HistoryCount:     len(s.sessions),
	}
	if s.pending != nil {
		p := *s.pending
		snap.Annotation = &p
	}
	return snap
}

func (s *Store) touch() {
	s.current.UpdatedAt = s.now()
}

func (s *Store) persist(ctx context.Context, history []model.AssessmentSession) error {
	if s.persister == nil {
		return nil
	}
	if err := s.persister.SaveHistory(ctx, history); err != nil {
		s.logger.Error("failed to persist session history", zap.Error(err), zap.Int("sessions", len(history)))
		return err
	}
	return nil
}

func cloneSessions(in []model.AssessmentSession) []model.AssessmentSession {
	out := make([]model.AssessmentSession, len(in))
	for i := range in {
		out[i] = *in[i].Clone()
	}
	return out
}

func normalizeImages(images []model.Image) []model.Image {
	if len(images) == 0 {
		return nil
	}
	return append([]model.Image(nil), images...)
}
