package gateway

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/ariebrainware/physio-pain-assessment/model"
)

const (
	defaultAssessment = "Unable to generate assessment."
	defaultNextStep   = "Consult with a healthcare professional for proper evaluation."
	defaultDisclaimer = "This is not medical advice. Please consult a qualified healthcare professional for proper diagnosis and treatment."
	defaultStructure  = "Unspecified structure"
)

// extractEnclosed returns the text from the first open to the last close delimiter.
func extractEnclosed(text string, openCh, closeCh byte) (string, bool) {
	start := strings.IndexByte(text, openCh)
	end := strings.LastIndexByte(text, closeCh)
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func parseAndValidate(raw string, openCh, closeCh byte, validate func(any) error) ([]byte, error) {
	fragment, ok := extractEnclosed(raw, openCh, closeCh)
	if !ok {
		return nil, ErrInvalidResponseFormat
	}
	var instance any
	if err := json.Unmarshal([]byte(fragment), &instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponseFormat, err)
	}
	if err := loadSchemas(); err != nil {
		return nil, err
	}
	if err := validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponseFormat, err)
	}
	return []byte(fragment), nil
}

// DecodeAnalysis extracts the outermost JSON object from an AI reply and back-fills the
// fields the reply left out.
func DecodeAnalysis(raw string) (*model.AnalysisResult, error) {
	fragment, err := parseAndValidate(raw, '{', '}', func(v any) error { return analysisSchema.Validate(v) })
	if err != nil {
		return nil, err
	}
	var result model.AnalysisResult
	if err := json.Unmarshal(fragment, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponseFormat, err)
	}

	if result.PreliminaryAssessment == "" {
		result.PreliminaryAssessment = defaultAssessment
	}
	if result.AffectedStructures == nil {
		result.AffectedStructures = []model.AffectedStructure{}
	}
	for i := range result.AffectedStructures {
		s := &result.AffectedStructures[i]
		if strings.TrimSpace(s.Structure) == "" {
			s.Structure = defaultStructure
		}
		if s.Likelihood == "" {
			s.Likelihood = model.LikelihoodLow
		}
	}
	if result.RecommendedNextSteps == nil {
		result.RecommendedNextSteps = []string{defaultNextStep}
	}
	if result.RedFlags == nil {
		result.RedFlags = []string{}
	}
	if result.Disclaimer == "" {
		result.Disclaimer = defaultDisclaimer
	}
	return &result, nil
}

// generatedTestReply accepts fractional counts; the outer fields shadow the embedded ones.
type generatedTestReply struct {
	model.GeneratedTest
	Duration    *float64 `json:"duration"`
	Repetitions *float64 `json:"repetitions"`
}

// DecodeGeneratedTests extracts the outermost JSON array from an AI reply and back-fills
// the fields each test left out.
func DecodeGeneratedTests(raw string) ([]model.GeneratedTest, error) {
	fragment, err := parseAndValidate(raw, '[', ']', func(v any) error { return testsSchema.Validate(v) })
	if err != nil {
		return nil, err
	}
	var replies []generatedTestReply
	if err := json.Unmarshal(fragment, &replies); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponseFormat, err)
	}

	tests := make([]model.GeneratedTest, len(replies))
	for i, r := range replies {
		t := r.GeneratedTest
		if r.Duration != nil {
			t.Duration = int(math.Round(*r.Duration))
		}
		if r.Repetitions != nil {
			n := int(math.Round(*r.Repetitions))
			t.Repetitions = &n
		}
		t.ID = strings.TrimSpace(t.ID)
		t.Name = strings.TrimSpace(t.Name)
		switch {
		case t.Name == "" && t.ID != "":
			t.Name = strings.ReplaceAll(t.ID, "-", " ")
		case t.Name == "":
			t.Name = fmt.Sprintf("Movement test %d", i+1)
		}
		if t.ID == "" {
			t.ID = fmt.Sprintf("generated-test-%d", i+1)
		}
		if t.TargetMuscles == nil {
			t.TargetMuscles = []string{}
		}
		if t.Instructions == nil {
			t.Instructions = []string{}
		}
		if t.PositiveIndicators == nil {
			t.PositiveIndicators = []string{}
		}
		if t.NegativeIndicators == nil {
			t.NegativeIndicators = []string{}
		}
		tests[i] = t
	}
	return tests, nil
}

// FormatAnalysis renders an analysis as markdown for terminals and exports.
func FormatAnalysis(a *model.AnalysisResult) string {
	if a == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## Preliminary Assessment\n%s\n\n", a.PreliminaryAssessment)

	if len(a.AffectedStructures) > 0 {
		b.WriteString("## Likely Affected Structures\n")
		for _, s := range a.AffectedStructures {
			fmt.Fprintf(&b, "- **%s** (%s likelihood): %s\n", s.Structure, s.Likelihood, s.Reasoning)
		}
		b.WriteString("\n")
	}
	if len(a.RedFlags) > 0 {
		b.WriteString("## Red Flags\n")
		for _, flag := range a.RedFlags {
			fmt.Fprintf(&b, "- %s\n", flag)
		}
		b.WriteString("\n")
	}
	if len(a.RecommendedNextSteps) > 0 {
		b.WriteString("## Recommended Next Steps\n")
		for i, step := range a.RecommendedNextSteps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "---\n*%s*", a.Disclaimer)
	return b.String()
}
