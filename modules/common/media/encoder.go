package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF 디코더 등록
	_ "image/jpeg" // JPEG 디코더 등록
	_ "image/png"  // PNG 디코더 등록
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"

	"scene-prompt-server/modules/common/apperr"
)

// DefaultMaxBytes - 업로드 이미지 최대 크기
const DefaultMaxBytes int64 = 20 << 20

// Payload - 요청에 인라인으로 넣을 이미지 (base64 + media type)
type Payload struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
	Size     int    `json:"size"`
}

// Bytes - base64 디코딩한 원본 바이트
func (p *Payload) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(p.Data)
}

// Encoder - 업로드 이미지 → Payload 변환기
type Encoder struct {
	MaxBytes int64
}

func NewEncoder(maxBytes int64) *Encoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Encoder{MaxBytes: maxBytes}
}

// Encode - reader 내용을 base64 Payload 로 변환
// mediaType 이 비었거나 octet-stream 이면 내용으로 판별
func (e *Encoder) Encode(r io.Reader, mediaType string) (*Payload, error) {
	limit := e.Limit()
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, apperr.Encoding("Gagal membaca gambar", err)
	}
	if int64(len(data)) > limit {
		return nil, apperr.Encoding(fmt.Sprintf("Ukuran gambar melebihi batas %d MB", limit>>20), nil)
	}
	return e.encodeBytes(data, mediaType)
}

// EncodeFile - 파일 경로에서 읽어 변환
func (e *Encoder) EncodeFile(path string) (*Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Encoding("Gagal membuka gambar", err)
	}
	defer f.Close()

	return e.Encode(f, mediaTypeFromExt(path))
}

// EncodeDataURI - "data:<type>;base64,<payload>" 또는 순수 base64 문자열 변환
func (e *Encoder) EncodeDataURI(uri string) (*Payload, error) {
	mediaType := ""
	uri = strings.TrimSpace(uri)
	if strings.HasPrefix(uri, "data:") {
		if end := strings.Index(uri, ";"); end > len("data:") {
			mediaType = uri[len("data:"):end]
		}
	}

	data, err := base64.StdEncoding.DecodeString(StripDataURIPrefix(uri))
	if err != nil {
		return nil, apperr.Encoding("Gambar base64 tidak valid", err)
	}
	if limit := e.Limit(); int64(len(data)) > limit {
		return nil, apperr.Encoding(fmt.Sprintf("Ukuran gambar melebihi batas %d MB", limit>>20), nil)
	}
	return e.encodeBytes(data, mediaType)
}

// Limit - 업로드 크기 상한 (미설정 시 DefaultMaxBytes)
func (e *Encoder) Limit() int64 {
	if e.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return e.MaxBytes
}

func (e *Encoder) encodeBytes(data []byte, mediaType string) (*Payload, error) {
	if len(data) == 0 {
		return nil, apperr.Encoding("Gambar kosong", nil)
	}

	mediaType = normalizeMediaType(mediaType)
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = normalizeMediaType(http.DetectContentType(data))
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, apperr.Encoding(fmt.Sprintf("Tipe file %q bukan gambar", mediaType), nil)
	}

	if err := verifyImage(data, mediaType); err != nil {
		return nil, apperr.Encoding("Gambar tidak dapat dibaca", err)
	}

	return &Payload{
		Data:     base64.StdEncoding.EncodeToString(data),
		MIMEType: mediaType,
		Size:     len(data),
	}, nil
}

var decodable = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
}

// verifyImage - 실제 디코딩 가능한 이미지인지 확인 (WebP 는 go-webp 사용)
func verifyImage(data []byte, mediaType string) error {
	if mediaType == "image/webp" {
		if _, err := webp.Decode(bytes.NewReader(data), &decoder.Options{}); err != nil {
			return fmt.Errorf("failed to decode WebP: %w", err)
		}
		return nil
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		if errors.Is(err, image.ErrFormat) && !decodable[mediaType] {
			// 디코더가 없는 포맷 (heic 등) 은 모델 쪽 판단에 맡김
			return nil
		}
		return err
	}
	return nil
}

// StripDataURIPrefix - "data:<type>;base64," 접두어 제거
func StripDataURIPrefix(value string) string {
	if !strings.HasPrefix(value, "data:") {
		return value
	}
	const marker = ";base64,"
	if idx := strings.Index(value, marker); idx >= 0 {
		return value[idx+len(marker):]
	}
	if idx := strings.IndexByte(value, ','); idx >= 0 {
		return value[idx+1:]
	}
	return value
}

func normalizeMediaType(mediaType string) string {
	mediaType = strings.TrimSpace(mediaType)
	if idx := strings.IndexByte(mediaType, ';'); idx >= 0 {
		mediaType = strings.TrimSpace(mediaType[:idx])
	}
	return strings.ToLower(mediaType)
}

func mediaTypeFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	}
	return ""
}
