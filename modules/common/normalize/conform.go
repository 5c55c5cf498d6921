package normalize

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"scene-prompt-server/modules/common/apperr"
	"scene-prompt-server/modules/prompt"
)

var compiled sync.Map // schema 원문 → *jsonschema.Schema

// Conform - 파싱된 객체가 선언된 shape 을 만족하는지 검증
func Conform(obj map[string]any, shape *prompt.Shape, raw string) error {
	if shape == nil {
		return nil
	}

	schema, err := compile(shape)
	if err != nil {
		return err
	}
	if err := schema.Validate(obj); err != nil {
		return apperr.Malformed(raw, fmt.Errorf("response does not match declared shape: %w", err))
	}
	return nil
}

func compile(shape *prompt.Shape) (*jsonschema.Schema, error) {
	doc := shape.JSONSchema()
	key := string(doc)
	if cached, ok := compiled.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("shape.json", bytes.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("failed to load shape schema: %w", err)
	}
	schema, err := compiler.Compile("shape.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile shape schema: %w", err)
	}
	compiled.Store(key, schema)
	return schema, nil
}
