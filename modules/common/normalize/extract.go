package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"scene-prompt-server/modules/common/apperr"
)

const fence = "```"

// StripFence - 앞쪽 ```<lang> 와 뒤쪽 ``` 제거
func StripFence(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, fence) {
		s = s[len(fence):]
		i := 0
		for i < len(s) && isLangTagChar(s[i]) {
			i++
		}
		s = s[i:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, fence)
	return strings.TrimSpace(s)
}

func isLangTagChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' || c == '+'
}

// ExtractRaw - 모델 응답에서 JSON 객체 원문 추출
// 코드 펜스 제거 후 전체가 하나의 JSON 객체여야 함
func ExtractRaw(text string) (json.RawMessage, error) {
	body := StripFence(text)
	if body == "" {
		return nil, apperr.Malformed(text, errors.New("empty response"))
	}
	if _, err := decodeObject(body); err != nil {
		return nil, apperr.Malformed(text, err)
	}
	return json.RawMessage(body), nil
}

// ExtractStructured - 모델 응답을 JSON 객체로 파싱 (숫자는 json.Number 로 보존)
func ExtractStructured(text string) (map[string]any, error) {
	body := StripFence(text)
	if body == "" {
		return nil, apperr.Malformed(text, errors.New("empty response"))
	}
	obj, err := decodeObject(body)
	if err != nil {
		return nil, apperr.Malformed(text, err)
	}
	return obj, nil
}

func decodeObject(body string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected trailing content after JSON object")
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %T", value)
	}
	return obj, nil
}

// Indent - 키 순서를 유지한 2칸 들여쓰기
func Indent(raw json.RawMessage) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", apperr.Malformed(string(raw), err)
	}
	return buf.String(), nil
}
