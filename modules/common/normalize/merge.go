package normalize

import (
	"encoding/json"
	"strconv"

	"scene-prompt-server/modules/scene"
)

// MergeIntoScene - 파싱 결과를 base Descriptor 위에 덮어쓰기
// 스키마 필드만 반영, null/누락/비문자 구조체 값과 Enum 범위 밖의 값은 base 유지
func MergeIntoScene(parsed map[string]any, base scene.Descriptor) scene.Descriptor {
	out := base.Clone()
	for _, f := range base.Schema().Fields {
		value, ok := SafeString(parsed[f.Name])
		if !ok {
			continue
		}
		// Set 은 Enum 위반 시 에러 → base 값 유지
		_ = out.Set(f.Name, value)
	}
	return out
}

// SafeString - 스칼라 JSON 값을 문자열로 (null, 객체, 배열은 false)
func SafeString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}

// PromptIdea - develop 응답의 promptIdea
func PromptIdea(parsed map[string]any, key string) string {
	s, _ := SafeString(parsed[key])
	return s
}
