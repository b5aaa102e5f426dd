package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestPainTypeAndViewValidation(t *testing.T) {
	for _, p := range []PainType{PainPoint, PainRadiating, PainDiffuse, PainReferred} {
		assert.True(t, p.Valid(), p)
	}
	assert.False(t, PainType("stabbing").Valid())
	assert.True(t, ViewAnterior.Valid())
	assert.True(t, ViewPosterior.Valid())
	assert.False(t, BodyView("lateral").Valid())
}

func TestValidIntensity(t *testing.T) {
	assert.False(t, ValidIntensity(0))
	assert.True(t, ValidIntensity(1))
	assert.True(t, ValidIntensity(10))
	assert.False(t, ValidIntensity(11))
}

func TestImageData(t *testing.T) {
	img := Image{Base64: "aGVsbG8=", MIMEType: "image/png"}
	data, err := img.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, err = Image{Base64: "%%%"}.Data()
	assert.Error(t, err)
}

func TestSuggestedTestUnmarshal(t *testing.T) {
	var tests []SuggestedTest
	raw := `["Try a gentle toe touch", {"id": "bridge", "purpose": "checks glutes"}, {"name": "Wall slide", "description": "slide up a wall"}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &tests))
	require.Len(t, tests, 3)
	assert.Equal(t, SuggestedTest{Name: "Try a gentle toe touch"}, tests[0])
	assert.Equal(t, SuggestedTest{Name: "bridge", Description: "checks glutes"}, tests[1])
	assert.Equal(t, SuggestedTest{Name: "Wall slide", Description: "slide up a wall"}, tests[2])

	var bad SuggestedTest
	assert.Error(t, json.Unmarshal([]byte(`42`), &bad))
}

func TestSessionCloneIsIndependent(t *testing.T) {
	now := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	rx := 4.0
	s := NewSession("s-1", now)
	s.PainMarkers = append(s.PainMarkers, PainMarker{
		ID:         "m-1",
		Region:     "neck-posterior",
		Intensity:  4,
		Images:     []Image{{Base64: "AA==", MIMEType: "image/png"}},
		SpreadArea: &SpreadArea{RadiusX: &rx},
	})
	s.SuggestedTests = []GeneratedTest{{ID: "g-1", Instructions: []string{"step"}}}
	s.GeminiAnalysis = &AnalysisResult{RedFlags: []string{"numbness"}}

	c := s.Clone()
	c.PainMarkers[0].Intensity = 9
	c.PainMarkers[0].Images[0].MIMEType = "image/jpeg"
	*c.PainMarkers[0].SpreadArea.RadiusX = 8
	c.SuggestedTests[0].Instructions[0] = "changed"
	c.GeminiAnalysis.RedFlags[0] = "changed"

	assert.Equal(t, 4, s.PainMarkers[0].Intensity)
	assert.Equal(t, "image/png", s.PainMarkers[0].Images[0].MIMEType)
	assert.Equal(t, 4.0, *s.PainMarkers[0].SpreadArea.RadiusX)
	assert.Equal(t, "step", s.SuggestedTests[0].Instructions[0])
	assert.Equal(t, "numbness", s.GeminiAnalysis.RedFlags[0])

	var nilSession *AssessmentSession
	assert.Nil(t, nilSession.Clone())
}

func TestSessionMarkerIndex(t *testing.T) {
	s := NewSession("s-1", time.Now())
	s.PainMarkers = []PainMarker{{ID: "a"}, {ID: "b"}}
	assert.Equal(t, 1, s.MarkerIndex("b"))
	assert.Equal(t, -1, s.MarkerIndex("zzz"))
	assert.True(t, s.InProgress())
	s.Status = StatusCompleted
	assert.False(t, s.InProgress())
}

func TestEventLog_CreateAndRead(t *testing.T) {
	db := setupTestDB(t, "eventlog", &EventLog{})

	entry := EventLog{
		EventType: "ANALYSIS_COMPLETED",
		SessionID: "s-1",
		IP:        "127.0.0.1",
		Message:   "analysis stored",
		Details:   datatypes.JSON([]byte(`{"markers":2}`)),
	}
	require.NoError(t, db.Create(&entry).Error)
	assert.NotZero(t, entry.ID)

	var got EventLog
	require.NoError(t, db.Where("session_id = ?", "s-1").First(&got).Error)
	assert.Equal(t, "ANALYSIS_COMPLETED", got.EventType)
	assert.JSONEq(t, `{"markers":2}`, string(got.Details))
}

func TestKVRecord_Upsert(t *testing.T) {
	db := setupTestDB(t, "kv", &KVRecord{})

	rec := KVRecord{Key: "physio-pain-storage", Value: datatypes.JSON([]byte(`{"version":1}`))}
	require.NoError(t, db.Save(&rec).Error)
	rec.Value = datatypes.JSON([]byte(`{"version":2}`))
	require.NoError(t, db.Save(&rec).Error)

	var count int64
	db.Model(&KVRecord{}).Count(&count)
	assert.Equal(t, int64(1), count)

	var got KVRecord
	require.NoError(t, db.First(&got, "kv_key = ?", "physio-pain-storage").Error)
	assert.JSONEq(t, `{"version":2}`, string(got.Value))
}
