package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Descriptor - 한 장면(video/image)의 필드 값
// 필드 집합은 variant 스키마로 고정되며 값은 항상 문자열
type Descriptor struct {
	variant Variant
	values  map[string]string
}

// Default - variant 기본 Descriptor
func Default(v Variant) Descriptor {
	s := SchemaFor(v)
	d := Descriptor{variant: s.Variant, values: make(map[string]string, len(s.Fields))}
	for _, f := range s.Fields {
		d.values[f.Name] = f.Default
	}
	return d
}

func (d Descriptor) Variant() Variant {
	return d.variant
}

func (d Descriptor) Schema() Schema {
	return SchemaFor(d.variant)
}

// Get - 필드 값 (스키마에 없는 필드는 빈 문자열)
func (d Descriptor) Get(name string) string {
	return d.values[name]
}

// Set - 필드 값 설정
// 스키마에 없는 필드, Enum 범위를 벗어난 값은 거부
func (d *Descriptor) Set(name, value string) error {
	f, ok := d.Schema().Field(name)
	if !ok {
		return fmt.Errorf("unknown field %q for %s scene", name, d.variant)
	}
	if !f.Allows(value) {
		return fmt.Errorf("invalid value %q for %s (allowed: %s)", value, name, strings.Join(f.Enum, ", "))
	}
	if d.values == nil {
		*d = Default(d.variant)
	}
	d.values[name] = value
	return nil
}

// Clone - 독립 복사본
func (d Descriptor) Clone() Descriptor {
	out := Descriptor{variant: d.variant, values: make(map[string]string, len(d.values))}
	for k, v := range d.values {
		out.values[k] = v
	}
	return out
}

// Equal - variant 와 모든 필드 값이 같은지
func (d Descriptor) Equal(other Descriptor) bool {
	if d.variant != other.variant {
		return false
	}
	for _, name := range d.Schema().Names() {
		if d.Get(name) != other.Get(name) {
			return false
		}
	}
	return true
}

// Map - 필드 이름 → 값 복사본
func (d Descriptor) Map() map[string]string {
	out := make(map[string]string, len(d.values))
	for _, name := range d.Schema().Names() {
		out[name] = d.values[name]
	}
	return out
}

// SpokenPhrase - 대사 필드 (video 전용, image 는 항상 빈 문자열)
func (d Descriptor) SpokenPhrase() string {
	if d.variant != Video {
		return ""
	}
	return d.values[FieldSpokenPhrase]
}

// MarshalJSON - 스키마 순서대로 출력
func (d Descriptor) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range d.Schema().Names() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(d.values[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Pretty - 프롬프트 삽입용 들여쓰기 JSON
func (d Descriptor) Pretty() string {
	raw, err := d.MarshalJSON()
	if err != nil {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
