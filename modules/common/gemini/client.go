package gemini

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"scene-prompt-server/modules/common/apperr"
	"scene-prompt-server/modules/prompt"
)

// Options - Gemini 클라이언트 설정
type Options struct {
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	// BaseURL - 비어 있으면 기본 엔드포인트
	BaseURL string
}

// Client - prompt.Request 를 Gemini generateContent 호출로 변환
type Client struct {
	genai   *genai.Client
	model   string
	temp    float32
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient - Gemini API 클라이언트 생성
func NewClient(ctx context.Context, opts Options, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}

	logger.Info("✅ [Gemini] Client initialized", zap.String("model", opts.Model))
	return &Client{
		genai:   gc,
		model:   opts.Model,
		temp:    float32(opts.Temperature),
		timeout: opts.Timeout,
		logger:  logger,
	}, nil
}

// Generate - 요청 1회 전송 후 응답 텍스트 반환 (재시도 없음)
func (c *Client) Generate(ctx context.Context, req *prompt.Request) (string, error) {
	op := string(req.Operation)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Instruction)}
	if req.Image != nil {
		data, err := req.Image.Bytes()
		if err != nil {
			return "", apperr.Encoding("Gagal membaca file gambar.", err)
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: req.Image.MIMEType,
				Data:     data,
			},
		})
	}
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}

	c.logger.Debug("📤 [Gemini] Calling generateContent",
		zap.String("operation", op),
		zap.Bool("image", req.Image != nil),
		zap.Bool("structured", req.Shape != nil))

	start := time.Now()
	result, err := c.genai.Models.GenerateContent(ctx, c.model, contents, buildConfig(req.Shape, c.temp))
	requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		if is429Error(err) {
			requestsTotal.WithLabelValues(op, "quota").Inc()
			c.logger.Warn("⚠️  [Gemini] Rate limit / quota", zap.String("operation", op), zap.Error(err))
			return "", apperr.QuotaExceeded(err)
		}
		requestsTotal.WithLabelValues(op, "transport_error").Inc()
		c.logger.Error("❌ [Gemini] Request failed", zap.String("operation", op), zap.Error(err))
		return "", apperr.Transport(transportMessage(err), err)
	}

	text := responseText(result)
	if strings.TrimSpace(text) == "" {
		requestsTotal.WithLabelValues(op, "empty").Inc()
		return "", apperr.Transport("AI tidak mengembalikan respons.", errors.New("empty response"))
	}

	requestsTotal.WithLabelValues(op, "success").Inc()
	c.logger.Debug("✅ [Gemini] Response received", zap.String("operation", op), zap.Int("chars", len(text)))
	return text, nil
}

// buildConfig - Shape 이 있으면 JSON 응답 강제 (+ 속성 있으면 responseSchema)
func buildConfig(shape *prompt.Shape, temp float32) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{Temperature: ptr(temp)}
	if shape == nil {
		return cfg
	}
	cfg.ResponseMIMEType = "application/json"
	if len(shape.Properties) > 0 {
		cfg.ResponseSchema = toSchema(shape)
	}
	return cfg
}

// toSchema - Shape → genai.Schema (속성 순서 유지)
func toSchema(shape *prompt.Shape) *genai.Schema {
	schema := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(shape.Properties)),
		Required:   shape.Required(),
	}
	for _, p := range shape.Properties {
		prop := &genai.Schema{
			Type:        genai.TypeString,
			Description: p.Hint,
			Nullable:    ptr(!p.Required),
		}
		if len(p.Enum) > 0 {
			prop.Enum = append([]string(nil), p.Enum...)
		}
		schema.Properties[p.Name] = prop
		schema.PropertyOrdering = append(schema.PropertyOrdering, p.Name)
	}
	return schema
}

// responseText - 첫 후보의 텍스트 파트 이어붙이기
func responseText(result *genai.GenerateContentResponse) string {
	if result == nil {
		return ""
	}
	for _, candidate := range result.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" && !part.Thought {
				sb.WriteString(part.Text)
			}
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return ""
}

func transportMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "Permintaan ke AI melebihi batas waktu."
	}
	if errors.Is(err, context.Canceled) {
		return "Permintaan dibatalkan."
	}
	return "Gagal menghubungi layanan AI."
}

// is429Error - 429 Rate Limit 에러인지 확인
func is429Error(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "quota") ||
		strings.Contains(errStr, "resource_exhausted")
}

func ptr[T any](v T) *T {
	return &v
}
