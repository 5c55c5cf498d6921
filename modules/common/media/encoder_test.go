package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scene-prompt-server/modules/common/apperr"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestEncodePNG(t *testing.T) {
	data := pngBytes(t)
	p, err := NewEncoder(0).Encode(bytes.NewReader(data), "image/png")
	require.NoError(t, err)

	assert.Equal(t, "image/png", p.MIMEType)
	assert.Equal(t, len(data), p.Size)
	assert.False(t, strings.HasPrefix(p.Data, "data:"))

	decoded, err := p.Bytes()
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestEncodeSniffsUndeclaredType(t *testing.T) {
	p, err := NewEncoder(0).Encode(bytes.NewReader(pngBytes(t)), "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, "image/png", p.MIMEType)
}

func TestEncodeDataURIStripsPrefix(t *testing.T) {
	data := pngBytes(t)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)

	p, err := NewEncoder(0).EncodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", p.MIMEType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(data), p.Data)

	bare, err := NewEncoder(0).EncodeDataURI(base64.StdEncoding.EncodeToString(data))
	require.NoError(t, err)
	assert.Equal(t, p.Data, bare.Data)
}

func TestEncodeRejectsNonImages(t *testing.T) {
	enc := NewEncoder(0)

	_, err := enc.Encode(strings.NewReader("just some text"), "")
	assert.True(t, errors.Is(err, apperr.ErrEncoding))

	_, err = enc.Encode(strings.NewReader("not really a png"), "image/png")
	assert.True(t, errors.Is(err, apperr.ErrEncoding))

	_, err = enc.Encode(strings.NewReader(""), "image/png")
	assert.True(t, errors.Is(err, apperr.ErrEncoding))

	_, err = enc.EncodeDataURI("data:image/png;base64,%%%")
	assert.True(t, errors.Is(err, apperr.ErrEncoding))
}

func TestEncodeSizeLimit(t *testing.T) {
	data := pngBytes(t)
	_, err := NewEncoder(int64(len(data)-1)).Encode(bytes.NewReader(data), "image/png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrEncoding))

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
	_, err = (&Encoder{MaxBytes: int64(len(data) - 1)}).EncodeDataURI(uri)
	assert.True(t, errors.Is(err, apperr.ErrEncoding))
}

func TestEncoderLimitDefaults(t *testing.T) {
	// 0 이하는 Encode / EncodeDataURI 모두 기본 상한 적용
	assert.Equal(t, DefaultMaxBytes, (&Encoder{}).Limit())
	assert.Equal(t, DefaultMaxBytes, (&Encoder{MaxBytes: -1}).Limit())
	assert.Equal(t, int64(10), (&Encoder{MaxBytes: 10}).Limit())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestEncodeReadFailure(t *testing.T) {
	_, err := NewEncoder(0).Encode(failingReader{}, "image/png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrEncoding))
}

func TestEncodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ref.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t), 0o600))

	p, err := NewEncoder(0).EncodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", p.MIMEType)

	_, err = NewEncoder(0).EncodeFile(filepath.Join(t.TempDir(), "missing.png"))
	assert.True(t, errors.Is(err, apperr.ErrEncoding))
}

func TestStripDataURIPrefix(t *testing.T) {
	assert.Equal(t, "QUJD", StripDataURIPrefix("data:image/jpeg;base64,QUJD"))
	assert.Equal(t, "QUJD", StripDataURIPrefix("QUJD"))
}
