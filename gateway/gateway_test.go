package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/ariebrainware/physio-pain-assessment/catalog"
	"github.com/ariebrainware/physio-pain-assessment/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	reply    string
	err      error
	calls    int
	requests []Request
}

func (f *fakeGenerator) Generate(_ context.Context, req Request) (string, error) {
	f.calls++
	f.requests = append(f.requests, req)
	return f.reply, f.err
}

func marker(id, region string, intensity int, images ...model.Image) model.PainMarker {
	return model.PainMarker{
		ID:        id,
		Region:    region,
		BodyView:  model.ViewPosterior,
		PainType:  model.PainPoint,
		Intensity: intensity,
		Images:    images,
	}
}

func pngImage(payload string) model.Image {
	return model.Image{Base64: base64.StdEncoding.EncodeToString([]byte(payload)), MIMEType: "image/png"}
}

const analysisReply = "Sure! Here you go:\n```json\n" + `{
  "preliminaryAssessment": "It sounds like a strained lower back muscle.",
  "affectedStructures": [{"structure": "Lower back muscles", "likelihood": "high", "reasoning": "Pain is central and worse when bending."}],
  "recommendedNextSteps": ["Gentle walking", "Heat pack"],
  "additionalTestsSuggested": ["Toe touch", {"id": "bridge-test", "purpose": "Checks glute strength"}],
  "redFlags": [],
  "disclaimer": "Just guidance."
}` + "\n```"

func TestBuildAnalyzeRequest_LowerBackCenter(t *testing.T) {
	req := BuildAnalyzeRequest(catalog.DefaultRegions(), AnalyzeInput{
		Markers: []model.PainMarker{marker("m1", "lower-back-center", 7)},
	})

	assert.Contains(t, req.Prompt, "Erector spinae")
	assert.Contains(t, req.Prompt, "Multifidus")
	assert.Contains(t, req.Prompt, "- Erector spinae (possibly involved)")
	assert.Contains(t, req.Prompt, `"region": "lower back center"`)
	assert.Contains(t, req.Prompt, "No movement tests done yet.")
	assert.NotContains(t, req.Prompt, "## What They Told Us")
	assert.NotContains(t, req.Prompt, "## About This Person")
	assert.Empty(t, req.Images)
}

func TestBuildAnalyzeRequest_RepeatedMuscleIsVeryLikely(t *testing.T) {
	req := BuildAnalyzeRequest(catalog.DefaultRegions(), AnalyzeInput{
		Markers: []model.PainMarker{
			marker("m1", "lower-back-center", 7),
			marker("m2", "lower-back-center", 4),
		},
	})
	assert.Contains(t, req.Prompt, "- Erector spinae (very likely involved)")
	assert.Contains(t, req.Prompt, "- Multifidus (very likely involved)")
}

func TestBuildAnalyzeRequest_UnknownRegionContributesNoMuscles(t *testing.T) {
	req := BuildAnalyzeRequest(catalog.DefaultRegions(), AnalyzeInput{
		Markers: []model.PainMarker{marker("m1", "elbow-imaginary", 3)},
	})
	assert.Contains(t, req.Prompt, "## Muscles That Might Be Involved\n\n")
}

func TestBuildAnalyzeRequest_StoryContextTestsAndImages(t *testing.T) {
	img1, img2 := pngImage("one"), pngImage("two")
	req := BuildAnalyzeRequest(catalog.DefaultRegions(), AnalyzeInput{
		Markers: []model.PainMarker{
			marker("m1", "lower-back-center", 7, img1),
			marker("m2", "calf-left", 2, img2),
		},
		TestResults: []model.MovementTestResult{
			{TestID: "slump-test", TestName: "Slump Test", IsPositive: true},
			{TestID: "faber-test", TestName: "FABER Test"},
		},
		Context:      &model.UserContext{Age: 42, RelevantHistory: []string{"disc bulge"}},
		InitialStory: "Started after lifting a box",
	})

	assert.Contains(t, req.Prompt, "## What They Told Us\n\"Started after lifting a box\"")
	assert.Contains(t, req.Prompt, "They've shared 2 photo(s)")
	assert.Contains(t, req.Prompt, `"result": "Caused pain/issues"`)
	assert.Contains(t, req.Prompt, `"result": "Felt okay"`)
	assert.Contains(t, req.Prompt, "- Age: 42")
	assert.Contains(t, req.Prompt, "- How active they are: Not shared")
	assert.Contains(t, req.Prompt, "- Past issues: disc bulge")
	assert.Equal(t, []model.Image{img1, img2}, req.Images)

	parts, err := req.Parts()
	require.NoError(t, err)
	require.Len(t, parts, 3)
	assert.Equal(t, []byte("one"), parts[0].InlineData.Data)
	assert.Equal(t, "image/png", parts[1].InlineData.MIMEType)
	assert.Equal(t, req.Prompt, parts[2].Text)
}

func TestRequestParts_InvalidImage(t *testing.T) {
	req := Request{Images: []model.Image{{Base64: "%%%", MIMEType: "image/png"}}, Prompt: "x"}
	_, err := req.Parts()
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBuildGenerateTestsRequest(t *testing.T) {
	req := BuildGenerateTestsRequest(catalog.DefaultRegions(), []model.PainMarker{marker("m1", "lower-back-center", 6)}, "")
	assert.Contains(t, req.Prompt, "- Erector spinae (lower back center)")
	assert.Contains(t, req.Prompt, "create 3-5 simple movement tests")
	assert.NotContains(t, req.Prompt, "photos they shared")
	assert.Contains(t, req.Prompt, "Respond ONLY with the JSON array")
}

func TestBuildFollowUpRequest(t *testing.T) {
	req := BuildFollowUpRequest(FollowUpInput{
		Question: "Can I still run?",
		PreviousAnalysis: &model.AnalysisResult{
			PreliminaryAssessment: "Likely a muscle strain.",
			AffectedStructures:    []model.AffectedStructure{{Structure: "Calf", Likelihood: model.LikelihoodMedium, Reasoning: "tender"}},
		},
		Markers:     []model.PainMarker{marker("m1", "calf-left", 4, pngImage("marker"))},
		TestResults: []model.MovementTestResult{{TestName: "Thomas Test"}},
		Images:      []model.Image{pngImage("a"), pngImage("b")},
	})

	assert.Contains(t, req.Prompt, "## Previous Assessment:\nLikely a muscle strain.")
	assert.Contains(t, req.Prompt, "- Calf (medium): tender")
	assert.Contains(t, req.Prompt, "- Thomas Test: Negative")
	assert.Contains(t, req.Prompt, "attached 2 images")
	assert.Contains(t, req.Prompt, "\"Can I still run?\"")
	assert.Contains(t, req.Prompt, "5. Reference specific observations from each image")
	assert.NotContains(t, req.Prompt, `"view"`)
	assert.Len(t, req.Images, 2, "only question images are sent")
}

func TestDecodeAnalysis(t *testing.T) {
	got, err := DecodeAnalysis(analysisReply)
	require.NoError(t, err)
	assert.Equal(t, "It sounds like a strained lower back muscle.", got.PreliminaryAssessment)
	require.Len(t, got.AffectedStructures, 1)
	assert.Equal(t, model.LikelihoodHigh, got.AffectedStructures[0].Likelihood)
	assert.Equal(t, []model.SuggestedTest{
		{Name: "Toe touch"},
		{Name: "bridge-test", Description: "Checks glute strength"},
	}, got.AdditionalTestsSuggested)
	assert.Equal(t, []string{}, got.RedFlags)
	assert.Equal(t, "Just guidance.", got.Disclaimer)
}

func TestDecodeAnalysis_BackFillsDefaults(t *testing.T) {
	got, err := DecodeAnalysis(`{"affectedStructures": null}`)
	require.NoError(t, err)
	assert.Equal(t, defaultAssessment, got.PreliminaryAssessment)
	assert.Equal(t, []model.AffectedStructure{}, got.AffectedStructures)
	assert.Equal(t, []string{defaultNextStep}, got.RecommendedNextSteps)
	assert.Equal(t, []string{}, got.RedFlags)
	assert.Equal(t, defaultDisclaimer, got.Disclaimer)
	assert.Nil(t, got.AdditionalTestsSuggested)
}

func TestDecodeAnalysis_InvalidFormat(t *testing.T) {
	cases := map[string]string{
		"no json":      "I cannot help with that.",
		"broken json":  `{"preliminaryAssessment": `,
		"wrong shapes": `{"redFlags": "none"}`,
		"bad struct":   `{"affectedStructures": ["lower back"]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeAnalysis(raw)
			assert.ErrorIs(t, err, ErrInvalidResponseFormat)
		})
	}
}

func TestDecodeGeneratedTests(t *testing.T) {
	raw := "Here are the tests:\n" + `[
  {"id": "wall-slide", "name": "Wall Slide", "purpose": "Checks shoulder range", "targetMuscles": ["shoulder muscles"],
   "instructions": ["Stand against a wall", "Slide arms up"], "duration": 20, "repetitions": 5,
   "whatToWatch": "Pinching at the top", "positiveIndicators": ["Sharp pain"], "negativeIndicators": ["Smooth movement"]},
  {"id": "hold", "name": "Plank Hold", "duration": 30, "repetitions": null}
]`
	tests, err := DecodeGeneratedTests(raw)
	require.NoError(t, err)
	require.Len(t, tests, 2)
	assert.Equal(t, "Wall Slide", tests[0].Name)
	require.NotNil(t, tests[0].Repetitions)
	assert.Equal(t, 5, *tests[0].Repetitions)
	assert.Nil(t, tests[1].Repetitions)
	assert.Equal(t, []string{}, tests[1].Instructions)
}

func TestDecodeAnalysis_BackFillsStructures(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want model.AffectedStructure
	}{
		{
			name: "missing structure",
			raw:  `{"preliminaryAssessment": "x", "affectedStructures": [{"likelihood": "high", "reasoning": "r"}]}`,
			want: model.AffectedStructure{Structure: defaultStructure, Likelihood: model.LikelihoodHigh, Reasoning: "r"},
		},
		{
			name: "null likelihood",
			raw:  `{"affectedStructures": [{"structure": "Hamstring", "likelihood": null, "reasoning": null}]}`,
			want: model.AffectedStructure{Structure: "Hamstring", Likelihood: model.LikelihoodLow},
		},
		{
			name: "empty object",
			raw:  `{"affectedStructures": [{}]}`,
			want: model.AffectedStructure{Structure: defaultStructure, Likelihood: model.LikelihoodLow},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeAnalysis(tc.raw)
			require.NoError(t, err)
			require.Len(t, got.AffectedStructures, 1)
			assert.Equal(t, tc.want, got.AffectedStructures[0])
		})
	}
}

func TestDecodeGeneratedTests_BackFillsFields(t *testing.T) {
	three := 3
	cases := []struct {
		name            string
		raw             string
		wantID          string
		wantName        string
		wantDuration    int
		wantRepetitions *int
	}{
		{"name from id", `[{"id": "wall-slide", "duration": 15}]`, "wall-slide", "wall slide", 15, nil},
		{"fractional duration", `[{"id": "a", "name": "Hold", "duration": 15.5}]`, "a", "Hold", 16, nil},
		{"fractional repetitions", `[{"name": "Squat", "repetitions": 2.6}]`, "generated-test-1", "Squat", 0, &three},
		{"empty object", `[{}]`, "generated-test-1", "Movement test 1", 0, nil},
		{"null fields", `[{"id": null, "name": null, "duration": null, "instructions": null}]`, "generated-test-1", "Movement test 1", 0, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tests, err := DecodeGeneratedTests(tc.raw)
			require.NoError(t, err)
			require.Len(t, tests, 1)
			assert.Equal(t, tc.wantID, tests[0].ID)
			assert.Equal(t, tc.wantName, tests[0].Name)
			assert.Equal(t, tc.wantDuration, tests[0].Duration)
			assert.Equal(t, tc.wantRepetitions, tests[0].Repetitions)
			assert.Equal(t, []string{}, tests[0].Instructions)
		})
	}
}

func TestDecodeGeneratedTests_InvalidFormat(t *testing.T) {
	for _, raw := range []string{"no tests today", `["just a name"]`, `[{"name": "x", "duration": "soon"}]`} {
		_, err := DecodeGeneratedTests(raw)
		assert.ErrorIs(t, err, ErrInvalidResponseFormat, raw)
	}
}

func TestGateway_Analyze(t *testing.T) {
	gen := &fakeGenerator{reply: analysisReply}
	g := New(gen, nil, nil)

	result, err := g.Analyze(context.Background(), AnalyzeInput{
		Markers: []model.PainMarker{marker("m1", "lower-back-center", 7)},
	})
	require.NoError(t, err)
	assert.Equal(t, "Just guidance.", result.Disclaimer)
	require.Equal(t, 1, gen.calls)
	assert.Contains(t, gen.requests[0].Prompt, "Erector spinae")
}

func TestGateway_ValidationBeforeGenerator(t *testing.T) {
	gen := &fakeGenerator{reply: "[]"}
	g := New(gen, nil, nil)
	ctx := context.Background()

	_, err := g.GenerateTests(ctx, nil, "story")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = g.Analyze(ctx, AnalyzeInput{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = g.AskFollowUp(ctx, FollowUpInput{Question: "   "})
	assert.ErrorIs(t, err, ErrValidation)

	assert.Zero(t, gen.calls)
}

func TestGateway_MissingCredential(t *testing.T) {
	g := New(nil, nil, nil)
	assert.False(t, g.Configured())

	_, err := g.Analyze(context.Background(), AnalyzeInput{Markers: []model.PainMarker{marker("m1", "head", 2)}})
	assert.ErrorIs(t, err, ErrMissingCredential)
	_, err = g.GenerateTests(context.Background(), []model.PainMarker{marker("m1", "head", 2)}, "")
	assert.ErrorIs(t, err, ErrMissingCredential)
	_, err = g.AskFollowUp(context.Background(), FollowUpInput{Question: "why?"})
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestGateway_UpstreamFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("connection reset")}
	g := New(gen, nil, nil)

	_, err := g.GenerateTests(context.Background(), []model.PainMarker{marker("m1", "head", 2)}, "")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestGateway_GenerateTestsInvalidReply(t *testing.T) {
	gen := &fakeGenerator{reply: "Sorry, I can't do that."}
	g := New(gen, nil, nil)

	_, err := g.GenerateTests(context.Background(), []model.PainMarker{marker("m1", "head", 2)}, "")
	assert.ErrorIs(t, err, ErrInvalidResponseFormat)
	assert.Equal(t, 1, gen.calls)
}

func TestGateway_AskFollowUpReturnsRawText(t *testing.T) {
	gen := &fakeGenerator{reply: "  Gentle jogging is fine if pain stays below 3/10.  "}
	g := New(gen, nil, nil)

	reply, err := g.AskFollowUp(context.Background(), FollowUpInput{Question: "Can I jog?"})
	require.NoError(t, err)
	assert.Equal(t, gen.reply, reply)
}

func TestFormatAnalysis(t *testing.T) {
	out := FormatAnalysis(&model.AnalysisResult{
		PreliminaryAssessment: "Muscle strain.",
		AffectedStructures:    []model.AffectedStructure{{Structure: "Calf", Likelihood: "low", Reasoning: "mild"}},
		RecommendedNextSteps:  []string{"Rest", "Ice"},
		RedFlags:              []string{"Numbness"},
		Disclaimer:            "Not advice.",
	})
	assert.True(t, strings.HasPrefix(out, "## Preliminary Assessment\nMuscle strain."))
	assert.Contains(t, out, "- **Calf** (low likelihood): mild")
	assert.Contains(t, out, "## Red Flags\n- Numbness")
	assert.Contains(t, out, "2. Ice")
	assert.True(t, strings.HasSuffix(out, "*Not advice.*"))
	assert.Empty(t, FormatAnalysis(nil))
}
