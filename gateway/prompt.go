package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ariebrainware/physio-pain-assessment/catalog"
	"github.com/ariebrainware/physio-pain-assessment/model"
)

const systemPrompt = `You are a friendly AI physiotherapy assistant helping everyday people understand their pain. Your role is to analyze pain patterns and movement test results in a way that's easy to understand.

IMPORTANT GUIDELINES:
1. Use simple, everyday language - avoid medical jargon
2. Explain things like you're talking to a friend, not a doctor
3. Always recommend seeing a professional for proper diagnosis
4. Be conservative - when uncertain, recommend professional evaluation
5. Flag any warning signs that need immediate attention
6. Suggest simple self-care tips when appropriate
7. Never diagnose - only suggest what might be going on

LANGUAGE RULES:
- Instead of "inflammation", say "swelling or irritation"
- Instead of "musculoskeletal", say "muscle and joint"
- Instead of "referred pain", say "pain that travels from another area"
- Instead of "bilateral", say "on both sides"
- Instead of "chronic", say "long-lasting" or "ongoing"
- Instead of "acute", say "sudden" or "recent"
- Instead of "cervical", say "neck"
- Instead of "lumbar", say "lower back"
- Instead of "thoracic", say "upper/mid back"
- Use everyday comparisons to explain sensations

Your response should be warm, reassuring, and easy to understand.`

const analysisFormat = `Please respond in the following JSON format. Remember to use SIMPLE, EVERYDAY LANGUAGE - imagine you're explaining this to a friend who knows nothing about medicine:

{
  "preliminaryAssessment": "A friendly 2-3 sentence explanation of what's probably going on. Use simple words. Start with something like 'Based on what you've told me...' or 'It sounds like...'",
  "affectedStructures": [
    {
      "structure": "Name of the body part (use everyday names like 'shoulder muscle' not 'deltoid')",
      "likelihood": "high|medium|low",
      "reasoning": "Simple explanation anyone can understand - why you think this part is involved"
    }
  ],
  "recommendedNextSteps": [
    "Practical tip 1 - something they can do right now",
    "Practical tip 2 - clear and actionable"
  ],
  "additionalTestsSuggested": [
    "A simple movement they could try to learn more"
  ],
  "redFlags": [
    "Any warning signs that mean they should see a doctor right away (leave empty if none)"
  ],
  "disclaimer": "A friendly reminder that this is just guidance, not medical advice"
}

Respond ONLY with the JSON object, no additional text.`

const generatedTestsFormat = `Create movement tests that:
1. Are SAFE and easy to do at home with no equipment
2. Help figure out what's causing the pain
3. Start with gentle movements, then progress to more challenging ones
4. Have CLEAR, SIMPLE instructions anyone can follow

IMPORTANT: Use everyday language, not medical terms. Imagine you're explaining this to a friend.

Return ONLY a JSON array with the following structure:
[
  {
    "id": "unique-test-id",
    "name": "Simple, descriptive name (e.g., 'Shoulder Reach Test' not 'Glenohumeral ROM Assessment')",
    "purpose": "Why this test helps - explained simply",
    "targetMuscles": ["Simple muscle names like 'shoulder muscles', 'back muscles'"],
    "instructions": [
      "Clear step 1 - like you're explaining to a friend",
      "Clear step 2 - simple language",
      "Clear step 3 - easy to follow"
    ],
    "duration": 15,
    "repetitions": 3,
    "whatToWatch": "What to pay attention to during the test - in plain English",
    "positiveIndicators": [
      "If you feel THIS, it might mean there's an issue (plain language)"
    ],
    "negativeIndicators": [
      "If you can do this without problems, that's a good sign"
    ]
  }
]

Generate 3-5 tests. Respond ONLY with the JSON array, no additional text.`

// Request is a fully built AI request. Images are sent before the prompt text.
type Request struct {
	Images []model.Image
	Prompt string
}

// AnalyzeInput carries everything the full analysis needs.
type AnalyzeInput struct {
	Markers      []model.PainMarker
	TestResults  []model.MovementTestResult
	Context      *model.UserContext
	InitialStory string
}

// FollowUpInput carries a follow-up question and the assessment it refers to.
type FollowUpInput struct {
	Question         string
	PreviousAnalysis *model.AnalysisResult
	Markers          []model.PainMarker
	TestResults      []model.MovementTestResult
	Images           []model.Image
}

type painSummary struct {
	Region    string         `json:"region"`
	View      model.BodyView `json:"view,omitempty"`
	PainType  model.PainType `json:"painType"`
	Intensity int            `json:"intensity"`
	HasImages *bool          `json:"hasImages,omitempty"`
	Notes     string         `json:"notes,omitempty"`
}

type testSummary struct {
	Test      string `json:"test"`
	Result    string `json:"result"`
	Notes     string `json:"notes,omitempty"`
	HasImages bool   `json:"hasImages"`
}

// muscleInvolvement is one primary muscle with the markers that point at it.
type muscleInvolvement struct {
	Muscle    string
	MarkerIDs []string
}

// Likelihood is "very likely" when more than one marker implicates the muscle.
func (m muscleInvolvement) Likelihood() string {
	if len(m.MarkerIDs) > 1 {
		return "very likely"
	}
	return "possibly"
}

func humanRegion(regionID string) string {
	return strings.ReplaceAll(regionID, "-", " ")
}

func summarizeMarkers(markers []model.PainMarker, withView bool) []painSummary {
	out := make([]painSummary, 0, len(markers))
	for _, m := range markers {
		s := painSummary{
			Region:    humanRegion(m.Region),
			PainType:  m.PainType,
			Intensity: m.Intensity,
			Notes:     m.Notes,
		}
		if withView {
			has := m.HasImages()
			s.View = m.BodyView
			s.HasImages = &has
		}
		out = append(out, s)
	}
	return out
}

func summarizeTests(results []model.MovementTestResult) []testSummary {
	out := make([]testSummary, 0, len(results))
	for _, r := range results {
		verdict := "Felt okay"
		if r.IsPositive {
			verdict = "Caused pain/issues"
		}
		out = append(out, testSummary{
			Test:      r.TestName,
			Result:    verdict,
			Notes:     r.Notes,
			HasImages: len(r.Images) > 0,
		})
	}
	return out
}

// involvedMuscles groups markers by the primary muscles of their regions, in first-seen order.
// Markers on regions without a mapping contribute nothing.
func involvedMuscles(regions *catalog.RegionCatalog, markers []model.PainMarker) []muscleInvolvement {
	index := map[string]int{}
	var out []muscleInvolvement
	for _, m := range markers {
		for _, muscle := range regions.PrimaryMuscles(m.Region) {
			i, ok := index[muscle]
			if !ok {
				i = len(out)
				index[muscle] = i
				out = append(out, muscleInvolvement{Muscle: muscle})
			}
			out[i].MarkerIDs = append(out[i].MarkerIDs, m.ID)
		}
	}
	return out
}

func markerImages(markers []model.PainMarker) []model.Image {
	var out []model.Image
	for _, m := range markers {
		out = append(out, m.Images...)
	}
	return out
}

func prettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}

func writeStory(b *strings.Builder, story string) {
	if story == "" {
		return
	}
	fmt.Fprintf(b, "## What They Told Us\n%q\n\n", story)
}

// BuildAnalyzeRequest builds the full-analysis request: pain summary, involved muscles,
// movement test outcomes, optional story and user context, and the expected JSON shape.
func BuildAnalyzeRequest(regions *catalog.RegionCatalog, in AnalyzeInput) Request {
	images := markerImages(in.Markers)

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(systemPrompt)
	b.WriteString("\n\nPlease analyze this person's pain and give them helpful, easy-to-understand feedback.\n\n")
	writeStory(&b, in.InitialStory)
	if len(images) > 0 {
		fmt.Fprintf(&b, "## Photos Provided\nThey've shared %d photo(s) showing where it hurts. Look at these to:\n", len(images))
		b.WriteString("1. See exactly where the pain is\n2. Notice any visible signs like swelling or redness\n3. Connect what you see with what they're describing\n\n")
	}

	b.WriteString("## Where It Hurts\n")
	b.WriteString(prettyJSON(summarizeMarkers(in.Markers, true)))

	b.WriteString("\n\n## Muscles That Might Be Involved\n")
	muscles := involvedMuscles(regions, in.Markers)
	lines := make([]string, 0, len(muscles))
	for _, m := range muscles {
		lines = append(lines, fmt.Sprintf("- %s (%s involved)", m.Muscle, m.Likelihood()))
	}
	b.WriteString(strings.Join(lines, "\n"))

	b.WriteString("\n\n## Movement Test Results\n")
	if len(in.TestResults) > 0 {
		b.WriteString(prettyJSON(summarizeTests(in.TestResults)))
	} else {
		b.WriteString("No movement tests done yet.")
	}
	b.WriteString("\n\n")

	if in.Context != nil {
		age := "Not shared"
		if in.Context.Age > 0 {
			age = fmt.Sprint(in.Context.Age)
		}
		activity := in.Context.ActivityLevel
		if activity == "" {
			activity = "Not shared"
		}
		history := strings.Join(in.Context.RelevantHistory, ", ")
		if history == "" {
			history = "None mentioned"
		}
		fmt.Fprintf(&b, "## About This Person\n- Age: %s\n- How active they are: %s\n- Past issues: %s\n\n", age, activity, history)
	}

	b.WriteString(analysisFormat)
	return Request{Images: images, Prompt: b.String()}
}

// BuildGenerateTestsRequest builds the request asking for three to five at-home movement tests.
func BuildGenerateTestsRequest(regions *catalog.RegionCatalog, markers []model.PainMarker, initialStory string) Request {
	images := markerImages(markers)

	var b strings.Builder
	b.WriteString("\nYou are a friendly AI physiotherapy assistant. Based on what this person told you about their pain")
	if len(images) > 0 {
		b.WriteString(" and the photos they shared")
	}
	b.WriteString(", create 3-5 simple movement tests they can do at home.\n\n")
	writeStory(&b, initialStory)
	if len(images) > 0 {
		fmt.Fprintf(&b, "## Photos They Shared\nThey've provided %d photo(s) showing where it hurts. Use these to:\n", len(images))
		b.WriteString("1. See exactly where the pain is\n2. Notice any visible signs like swelling or redness\n3. Create tests that are relevant to what you see\n\n")
	}

	b.WriteString("## Where It Hurts\n")
	b.WriteString(prettyJSON(summarizeMarkers(markers, true)))

	b.WriteString("\n\n## Muscles That Might Be Involved\n")
	var lines []string
	for _, m := range markers {
		for _, muscle := range regions.PrimaryMuscles(m.Region) {
			lines = append(lines, fmt.Sprintf("- %s (%s)", muscle, humanRegion(m.Region)))
		}
	}
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n")
	b.WriteString(generatedTestsFormat)
	return Request{Images: images, Prompt: b.String()}
}

// BuildFollowUpRequest builds a free-text follow-up that quotes the previous assessment.
// Only the images attached to the question are sent.
func BuildFollowUpRequest(in FollowUpInput) Request {
	prev := in.PreviousAnalysis
	if prev == nil {
		prev = &model.AnalysisResult{}
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(systemPrompt)
	b.WriteString("\n\nYou previously provided this assessment for a patient:\n\n## Previous Assessment:\n")
	b.WriteString(prev.PreliminaryAssessment)

	b.WriteString("\n\n## Affected Structures Identified:\n")
	structures := make([]string, 0, len(prev.AffectedStructures))
	for _, s := range prev.AffectedStructures {
		structures = append(structures, fmt.Sprintf("- %s (%s): %s", s.Structure, s.Likelihood, s.Reasoning))
	}
	b.WriteString(strings.Join(structures, "\n"))

	b.WriteString("\n\n## Pain Data:\n")
	b.WriteString(prettyJSON(summarizeMarkers(in.Markers, false)))

	b.WriteString("\n\n## Movement Tests Completed:\n")
	if len(in.TestResults) == 0 {
		b.WriteString("None")
	} else {
		tests := make([]string, 0, len(in.TestResults))
		for _, t := range in.TestResults {
			verdict := "Negative"
			if t.IsPositive {
				verdict = "Positive"
			}
			tests = append(tests, fmt.Sprintf("- %s: %s", t.TestName, verdict))
		}
		b.WriteString(strings.Join(tests, "\n"))
	}
	b.WriteString("\n\n")

	n := len(in.Images)
	if n > 0 {
		noun, target := "image", "the image"
		if n > 1 {
			noun, target = "images", "all the images"
		}
		fmt.Fprintf(&b, "The patient has attached %d %s showing their pain location or affected body part. Please analyze %s in the context of their symptoms and provide relevant observations.\n\n", n, noun, target)
	}

	fmt.Fprintf(&b, "The patient has a follow-up question:\n%q\n\n", in.Question)
	b.WriteString("Please provide a helpful, clear response. Remember to:\n")
	b.WriteString("1. Stay within your role as an AI physiotherapy assistant\n")
	b.WriteString("2. Recommend professional consultation when appropriate\n")
	b.WriteString("3. Be educational but not diagnostic\n")
	b.WriteString("4. Keep your response concise and actionable\n")
	if n > 0 {
		ref := "the image"
		if n > 1 {
			ref = "each image"
		}
		fmt.Fprintf(&b, "5. Reference specific observations from %s when relevant\n", ref)
	}

	return Request{Images: append([]model.Image(nil), in.Images...), Prompt: b.String()}
}
