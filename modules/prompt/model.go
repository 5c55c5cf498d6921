package prompt

import (
	"encoding/json"

	"scene-prompt-server/modules/common/media"
)

// Operation - 요청 종류 (로그/메트릭 라벨)
type Operation string

const (
	OpDevelopFromIdea   Operation = "develop_from_idea"
	OpDevelopFromImage  Operation = "develop_from_image"
	OpComposeParagraph  Operation = "compose_paragraph"
	OpTranslate         Operation = "translate"
	OpStructuredListing Operation = "structured_listing"
	OpStructuredJSON    Operation = "structured_json"
	OpStoryExpansion    Operation = "story_expansion"
)

// PromptIdeaField - 이미지 기반 develop 에서 돌려받는 한 줄 요약
const PromptIdeaField = "promptIdea"

// Request - 모델 호출 1회 분량
type Request struct {
	Operation   Operation
	Instruction string
	Image       *media.Payload
	// Shape 이 nil 이면 자유 텍스트 응답
	Shape *Shape
}

// Property - 응답 shape 의 속성 하나
type Property struct {
	Name     string
	Type     string
	Hint     string
	Enum     []string
	Required bool
}

// Shape - 모델 응답 구조 선언 (특정 벤더 스키마와 무관)
// Properties 가 비어 있으면 "임의의 JSON 객체"
type Shape struct {
	Properties []Property
}

// Required - 필수 속성 이름 목록
func (s *Shape) Required() []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, p := range s.Properties {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

// JSONSchema - 로컬 검증용 JSON Schema 문서
// 필수 속성은 string, 나머지는 string 또는 null; enum 은 검증하지 않음 (merge 단계에서 처리)
func (s *Shape) JSONSchema() json.RawMessage {
	doc := map[string]any{"type": "object"}
	if s != nil && len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for _, p := range s.Properties {
			typ := p.Type
			if typ == "" {
				typ = "string"
			}
			if p.Required {
				props[p.Name] = map[string]any{"type": typ}
				continue
			}
			props[p.Name] = map[string]any{"type": []string{typ, "null"}}
		}
		doc["properties"] = props
		if req := s.Required(); len(req) > 0 {
			doc["required"] = req
		}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return raw
}
