// Package gateway turns session data into requests for the generative AI service and
// decodes its replies into assessment types.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariebrainware/physio-pain-assessment/catalog"
	"github.com/ariebrainware/physio-pain-assessment/model"
	"go.uber.org/zap"
)

// Gateway runs the three AI operations. A nil generator means no credential is configured.
type Gateway struct {
	gen     Generator
	regions *catalog.RegionCatalog
	logger  *zap.Logger
}

// New returns a Gateway. regions defaults to the built-in catalog and logger to a no-op.
func New(gen Generator, regions *catalog.RegionCatalog, logger *zap.Logger) *Gateway {
	if regions == nil {
		regions = catalog.DefaultRegions()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{gen: gen, regions: regions, logger: logger}
}

// Configured reports whether a generator is available.
func (g *Gateway) Configured() bool {
	return g != nil && g.gen != nil
}

func (g *Gateway) generator() (Generator, error) {
	if !g.Configured() {
		return nil, ErrMissingCredential
	}
	return g.gen, nil
}

func (g *Gateway) call(ctx context.Context, op string, req Request) (string, error) {
	gen, err := g.generator()
	if err != nil {
		return "", err
	}
	start := time.Now()
	text, err := gen.Generate(ctx, req)
	if err != nil {
		g.logger.Error("AI request failed", zap.String("operation", op), zap.Error(err))
		if errors.Is(err, ErrUpstream) || errors.Is(err, ErrValidation) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	g.logger.Info("AI request completed",
		zap.String("operation", op),
		zap.Int("images", len(req.Images)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return text, nil
}

// Analyze requests a preliminary assessment. At least one marker is required.
func (g *Gateway) Analyze(ctx context.Context, in AnalyzeInput) (*model.AnalysisResult, error) {
	if _, err := g.generator(); err != nil {
		return nil, err
	}
	if len(in.Markers) == 0 {
		return nil, fmt.Errorf("%w: pain markers are required", ErrValidation)
	}
	text, err := g.call(ctx, "analyze", BuildAnalyzeRequest(g.regions, in))
	if err != nil {
		return nil, err
	}
	result, err := DecodeAnalysis(text)
	if err != nil {
		g.logger.Warn("unparseable analysis reply", zap.Error(err), zap.Int("reply_len", len(text)))
		return nil, err
	}
	return result, nil
}

// GenerateTests asks for at-home movement tests tailored to the markers.
func (g *Gateway) GenerateTests(ctx context.Context, markers []model.PainMarker, initialStory string) ([]model.GeneratedTest, error) {
	if _, err := g.generator(); err != nil {
		return nil, err
	}
	if len(markers) == 0 {
		return nil, fmt.Errorf("%w: pain markers are required", ErrValidation)
	}
	text, err := g.call(ctx, "generate-tests", BuildGenerateTestsRequest(g.regions, markers, initialStory))
	if err != nil {
		return nil, err
	}
	tests, err := DecodeGeneratedTests(text)
	if err != nil {
		g.logger.Warn("unparseable test generation reply", zap.Error(err), zap.Int("reply_len", len(text)))
		return nil, err
	}
	return tests, nil
}

// AskFollowUp answers a question about a previous assessment. The reply is returned verbatim.
func (g *Gateway) AskFollowUp(ctx context.Context, in FollowUpInput) (string, error) {
	if _, err := g.generator(); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Question) == "" {
		return "", fmt.Errorf("%w: question is required", ErrValidation)
	}
	return g.call(ctx, "follow-up", BuildFollowUpRequest(in))
}
