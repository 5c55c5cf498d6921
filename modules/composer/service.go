package composer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"scene-prompt-server/modules/common/media"
	"scene-prompt-server/modules/common/normalize"
	"scene-prompt-server/modules/prompt"
	"scene-prompt-server/modules/scene"
)

// Generator - 모델 호출 capability (요청 1회 → 응답 텍스트)
type Generator interface {
	Generate(ctx context.Context, req *prompt.Request) (string, error)
}

// Service - develop / generate-final 오케스트레이션
type Service struct {
	gen    Generator
	logger *zap.Logger
	now    func() time.Time
}

func NewService(gen Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{gen: gen, logger: logger, now: time.Now}
}

// Develop - 아이디어 텍스트로 장면 필드 채우기
// prior 위에 병합하므로 응답에 없는 필드는 그대로 유지
func (s *Service) Develop(ctx context.Context, v scene.Variant, idea string, prior scene.Descriptor) (scene.Descriptor, error) {
	req := prompt.BuildDevelopFromIdea(idea, v)
	parsed, err := s.structured(ctx, req)
	if err != nil {
		return prior, err
	}
	return normalize.MergeIntoScene(parsed, prior), nil
}

// DevelopFromImage - 이미지로 장면 필드 + 한 줄 아이디어 채우기
func (s *Service) DevelopFromImage(ctx context.Context, v scene.Variant, payload *media.Payload, prior scene.Descriptor) (scene.Descriptor, string, error) {
	req := prompt.BuildDevelopFromImage(payload, v)
	parsed, err := s.structured(ctx, req)
	if err != nil {
		return prior, "", err
	}
	return normalize.MergeIntoScene(parsed, prior), normalize.PromptIdea(parsed, prompt.PromptIdeaField), nil
}

// structured - 호출 → JSON 추출 → shape 검증
func (s *Service) structured(ctx context.Context, req *prompt.Request) (map[string]any, error) {
	raw, err := s.gen.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	parsed, err := normalize.ExtractStructured(raw)
	if err != nil {
		s.logger.Warn("⚠️  Malformed structured response", zap.String("operation", string(req.Operation)), zap.Error(err))
		return nil, err
	}
	if err := normalize.Conform(parsed, req.Shape, raw); err != nil {
		s.logger.Warn("⚠️  Response does not match shape", zap.String("operation", string(req.Operation)), zap.Error(err))
		return nil, err
	}
	return parsed, nil
}

// StepFunc - generate-final 단계 전환 알림
type StepFunc func(GenerateState)

// GenerateFinal - 1단계 문단 작성 후 2단계 4종 병렬 생성
// 하나라도 실패하면 결과 전체를 버림 (부분 결과 없음)
func (s *Service) GenerateFinal(ctx context.Context, d scene.Descriptor, step StepFunc) (*ArtifactSet, error) {
	if step == nil {
		step = func(GenerateState) {}
	}
	snapshot := d.Clone()

	step(GenerateComposingBase)
	source, err := s.gen.Generate(ctx, prompt.BuildComposeParagraph(snapshot))
	if err != nil {
		step(GenerateBaseFailed)
		return nil, err
	}

	step(GenerateFanningOut)
	var english, listing, jsonText, story string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := s.gen.Generate(gctx, prompt.BuildTranslate(source, snapshot.SpokenPhrase()))
		english = out
		return err
	})
	g.Go(func() error {
		out, err := s.gen.Generate(gctx, prompt.BuildStructuredListing(snapshot))
		listing = out
		return err
	})
	g.Go(func() error {
		out, err := s.structuredJSON(gctx, snapshot)
		jsonText = out
		return err
	})
	g.Go(func() error {
		out, err := s.gen.Generate(gctx, prompt.BuildStoryExpansion(snapshot))
		story = out
		return err
	})

	if err := g.Wait(); err != nil {
		step(GenerateAnyFailed)
		return nil, err
	}

	step(GenerateAllSucceeded)
	return &ArtifactSet{
		Source:      source,
		English:     english,
		Listing:     listing,
		JSON:        jsonText,
		Story:       story,
		Scene:       snapshot,
		GeneratedAt: s.now(),
	}, nil
}

// structuredJSON - JSON 결과물은 키 순서를 유지한 채 들여쓰기
func (s *Service) structuredJSON(ctx context.Context, d scene.Descriptor) (string, error) {
	req := prompt.BuildStructuredJSON(d)
	raw, err := s.gen.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	obj, err := normalize.ExtractRaw(raw)
	if err != nil {
		return "", err
	}
	return normalize.Indent(obj)
}

// isCanceled - 상위 context 취소 여부
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
