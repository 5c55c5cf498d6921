package composer

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scene-prompt-server/modules/common/apperr"
	"scene-prompt-server/modules/common/media"
	"scene-prompt-server/modules/prompt"
)

type handlerFixture struct {
	gen    *fakeGenerator
	sm     *SessionManager
	router *mux.Router
}

func newHandlerFixture() *handlerFixture {
	gen := newFakeGenerator()
	sm := NewSessionManager(NewService(gen, nil), NewMemoryGuard(), SessionOptions{}, nil)
	r := mux.NewRouter()
	NewHandler(sm, media.NewEncoder(1<<20), nil).RegisterRoutes(r)
	return &handlerFixture{gen: gen, sm: sm, router: r}
}

func (f *handlerFixture) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func workspaceOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	ws, ok := body["workspace"].(map[string]any)
	require.True(t, ok, "response has no workspace: %v", body)
	return ws
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHandlerSchema(t *testing.T) {
	f := newHandlerFixture()

	code, body := f.do(t, http.MethodGet, "/api/schema/image", "")
	assert.Equal(t, http.StatusOK, code)
	schema := body["schema"].(map[string]any)
	assert.Equal(t, "image", schema["variant"])
	fields := schema["fields"].([]any)
	assert.Equal(t, "subjek", fields[0].(map[string]any)["name"])

	code, body = f.do(t, http.MethodGet, "/api/schema/audio", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, apperr.ErrCodeInvalidRequest, body["errorCode"])
}

func TestHandlerSessionLifecycle(t *testing.T) {
	f := newHandlerFixture()

	code, body := f.do(t, http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusCreated, code)
	id := body["session"].(map[string]any)["sessionId"].(string)
	assert.Len(t, body["workspaces"], 2)

	code, _ = f.do(t, http.MethodGet, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = f.do(t, http.MethodDelete, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusOK, code)

	code, body = f.do(t, http.MethodGet, "/api/sessions/"+id+"/video", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, apperr.ErrCodeNotFound, body["errorCode"])
}

func TestHandlerDevelopAndGenerate(t *testing.T) {
	f := newHandlerFixture()
	id := f.sm.Create().ID()
	base := "/api/sessions/" + id + "/image"

	code, body := f.do(t, http.MethodPost, base+"/develop", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, apperr.ErrCodeValidation, body["errorCode"])
	assert.Equal(t, `Mohon masukkan "Ide Prompt" terlebih dahulu.`, body["errorMessage"])

	code, _ = f.do(t, http.MethodPut, base+"/idea", `{"idea":"astronot di pantai Mars"}`)
	require.Equal(t, http.StatusOK, code)

	code, body = f.do(t, http.MethodPost, base+"/develop", `{"source":"text"}`)
	require.Equal(t, http.StatusOK, code)
	ws := workspaceOf(t, body)
	assert.Equal(t, "success", ws["developState"])
	assert.Equal(t, "Seorang astronot", ws["scene"].(map[string]any)["subjek"])

	code, body = f.do(t, http.MethodPost, base+"/generate", "")
	require.Equal(t, http.StatusOK, code)
	artifacts := workspaceOf(t, body)["artifacts"].(map[string]any)
	for _, key := range []string{"source", "english", "listing", "json", "story"} {
		assert.NotEmpty(t, artifacts[key], key)
	}

	code, body = f.do(t, http.MethodPut, base+"/artifacts/source", `{"text":"teks baru"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "teks baru", workspaceOf(t, body)["artifacts"].(map[string]any)["source"])

	code, body = f.do(t, http.MethodPost, base+"/reset", "")
	require.Equal(t, http.StatusOK, code)
	ws = workspaceOf(t, body)
	assert.Nil(t, ws["artifacts"])
	assert.Equal(t, "", ws["idea"])
}

func TestHandlerGenerateFailure(t *testing.T) {
	f := newHandlerFixture()
	s := f.sm.Create()
	_, err := s.Workspace("video").SetFields(map[string]string{"subjek": "samurai", "aksi": "berlari"})
	require.NoError(t, err)
	f.gen.fail(prompt.OpTranslate, apperr.QuotaExceeded(nil))

	code, body := f.do(t, http.MethodPost, "/api/sessions/"+s.ID()+"/video/generate", "")
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, apperr.ErrCodeTransport, body["errorCode"])
	assert.Equal(t, "Terjadi kesalahan saat menghasilkan prompt final: Kuota API telah habis. Silakan coba lagi nanti.", body["errorMessage"])
	assert.Nil(t, workspaceOf(t, body)["artifacts"])
}

func TestHandlerBadRequests(t *testing.T) {
	f := newHandlerFixture()
	base := "/api/sessions/" + f.sm.Create().ID() + "/image"

	code, body := f.do(t, http.MethodPost, base+"/develop", `{"source":"audio"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, apperr.ErrCodeInvalidRequest, body["errorCode"])

	code, _ = f.do(t, http.MethodPut, base+"/idea", `{"idea":`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = f.do(t, http.MethodPatch, base+"/fields", `{"fields":{"aspekRasio":"2:1"}}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, apperr.ErrCodeValidation, body["errorCode"])

	code, body = f.do(t, http.MethodPost, base+"/image", `{"name":"a.txt","dataUri":"data:text/plain;base64,aGVsbG8="}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, apperr.ErrCodeEncoding, body["errorCode"])
}

func TestHandlerAttachImage(t *testing.T) {
	f := newHandlerFixture()
	base := "/api/sessions/" + f.sm.Create().ID() + "/video"
	data := testPNG(t)

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
	code, body := f.do(t, http.MethodPost, base+"/image", `{"name":"ref.png","dataUri":"`+uri+`"}`)
	require.Equal(t, http.StatusOK, code)
	img := workspaceOf(t, body)["image"].(map[string]any)
	assert.Equal(t, "ref.png", img["name"])
	assert.Equal(t, "image/png", img["mimeType"])

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "upload.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, base+"/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "upload.png")

	code, body = f.do(t, http.MethodPost, base+"/develop", `{"source":"image"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Astronot bersantai di Mars", workspaceOf(t, body)["idea"])

	code, body = f.do(t, http.MethodDelete, base+"/image", "")
	require.Equal(t, http.StatusOK, code)
	assert.Nil(t, workspaceOf(t, body)["image"])
}

func TestHandlerBusy(t *testing.T) {
	f := newHandlerFixture()
	s := f.sm.Create()
	s.Workspace("video").SetIdea("samurai")
	base := "/api/sessions/" + s.ID() + "/video"

	started, release := f.gen.hold()
	done := make(chan int, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, base+"/develop", nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		done <- rec.Code
	}()
	<-started

	code, body := f.do(t, http.MethodPost, base+"/develop", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, apperr.ErrCodeBusy, body["errorCode"])

	release()
	assert.Equal(t, http.StatusOK, <-done)
}

func TestHandlerWebSocket(t *testing.T) {
	f := newHandlerFixture()
	s := f.sm.Create()
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?session=" + s.ID()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() map[string]any {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var event map[string]any
		require.NoError(t, conn.ReadJSON(&event))
		return event
	}

	assert.Equal(t, EventClientJoined, read()["type"])
	assert.Equal(t, EventClientJoined, read()["type"])

	s.Workspace("image").SetIdea("astronot")
	event := read()
	assert.Equal(t, EventStateChanged, event["type"])
	assert.Equal(t, "astronot", event["workspace"].(map[string]any)["idea"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "request_state"}))
	assert.Equal(t, EventStateChanged, read()["type"])

	_, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws?session=missing", nil)
	assert.Error(t, err)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperr.Validation("x"), http.StatusBadRequest},
		{"encoding", apperr.Encoding("x", nil), http.StatusBadRequest},
		{"busy", apperr.Busy("x"), http.StatusConflict},
		{"transport", apperr.Transport("x", nil), http.StatusBadGateway},
		{"quota", apperr.QuotaExceeded(nil), http.StatusTooManyRequests},
		{"malformed", apperr.Malformed("raw", nil), http.StatusBadGateway},
		{"unknown", errors.New("x"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, statusFor(tc.err))
		})
	}
}
