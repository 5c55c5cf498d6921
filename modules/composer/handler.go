package composer

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"scene-prompt-server/modules/common/apperr"
	"scene-prompt-server/modules/common/media"
	"scene-prompt-server/modules/scene"
)

// Response - API 공통 응답
type Response struct {
	Success      bool         `json:"success"`
	Workspace    *Snapshot    `json:"workspace,omitempty"`
	Workspaces   []Snapshot   `json:"workspaces,omitempty"`
	Session      *SessionInfo `json:"session,omitempty"`
	Schema       *SchemaInfo  `json:"schema,omitempty"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
	ErrorCode    string       `json:"errorCode,omitempty"`
}

// SchemaInfo - 필드 스키마 응답
type SchemaInfo struct {
	Variant scene.Variant `json:"variant"`
	Fields  []scene.Field `json:"fields"`
}

// IdeaRequest - PUT .../idea
type IdeaRequest struct {
	Idea string `json:"idea"`
}

// FieldsRequest - PATCH .../fields
type FieldsRequest struct {
	Fields map[string]string `json:"fields"`
}

// ImageRequest - POST .../image (JSON 본문)
type ImageRequest struct {
	Name    string `json:"name"`
	DataURI string `json:"dataUri"`
}

// DevelopRequest - POST .../develop
type DevelopRequest struct {
	Source DevelopSource `json:"source"`
}

// SourceRequest - PUT .../artifacts/source
type SourceRequest struct {
	Text string `json:"text"`
}

type Handler struct {
	sessions *SessionManager
	encoder  *media.Encoder
	logger   *zap.Logger
}

func NewHandler(sessions *SessionManager, encoder *media.Encoder, logger *zap.Logger) *Handler {
	if encoder == nil {
		encoder = media.NewEncoder(media.DefaultMaxBytes)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: sessions, encoder: encoder, logger: logger}
}

// RegisterRoutes - API 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws", h.HandleWebSocket)
	r.HandleFunc("/admin/cleanup", h.HandleCleanup).Methods("POST")

	r.HandleFunc("/api/schema/{variant}", h.HandleSchema).Methods("GET")
	r.HandleFunc("/api/sessions", h.HandleCreateSession).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}", h.HandleGetSession).Methods("GET")
	r.HandleFunc("/api/sessions/{sessionId}", h.HandleCloseSession).Methods("DELETE")

	const ws = "/api/sessions/{sessionId}/{variant}"
	r.HandleFunc(ws, h.HandleSnapshot).Methods("GET")
	r.HandleFunc(ws+"/idea", h.HandleSetIdea).Methods("PUT")
	r.HandleFunc(ws+"/fields", h.HandleSetFields).Methods("PATCH")
	r.HandleFunc(ws+"/image", h.HandleAttachImage).Methods("POST")
	r.HandleFunc(ws+"/image", h.HandleDetachImage).Methods("DELETE")
	r.HandleFunc(ws+"/develop", h.HandleDevelop).Methods("POST")
	r.HandleFunc(ws+"/generate", h.HandleGenerate).Methods("POST")
	r.HandleFunc(ws+"/reset", h.HandleReset).Methods("POST")
	r.HandleFunc(ws+"/artifacts/source", h.HandleEditSource).Methods("PUT")
}

// HandleSchema - GET /api/schema/{variant}
func (h *Handler) HandleSchema(w http.ResponseWriter, r *http.Request) {
	v, err := scene.ParseVariant(mux.Vars(r)["variant"])
	if err != nil {
		writeInvalid(w, err.Error())
		return
	}
	s := scene.SchemaFor(v)
	writeJSON(w, http.StatusOK, Response{Success: true, Schema: &SchemaInfo{Variant: s.Variant, Fields: s.Fields}})
}

// HandleCreateSession - POST /api/sessions
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.Create()
	info := session.Info()
	writeJSON(w, http.StatusCreated, Response{Success: true, Session: &info, Workspaces: session.Snapshots()})
}

// HandleGetSession - GET /api/sessions/{sessionId}
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	info := session.Info()
	writeJSON(w, http.StatusOK, Response{Success: true, Session: &info, Workspaces: session.Snapshots()})
}

// HandleCloseSession - DELETE /api/sessions/{sessionId}
func (h *Handler) HandleCloseSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Close(mux.Vars(r)["sessionId"]) {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true})
}

// HandleSnapshot - GET /api/sessions/{sessionId}/{variant}
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	h.respond(w, ws.Snapshot(), nil)
}

// HandleSetIdea - PUT .../idea
func (h *Handler) HandleSetIdea(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req IdeaRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.respond(w, ws.SetIdea(req.Idea), nil)
}

// HandleSetFields - PATCH .../fields
func (h *Handler) HandleSetFields(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req FieldsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	snap, err := ws.SetFields(req.Fields)
	h.respond(w, snap, err)
}

// HandleAttachImage - POST .../image (multipart "image" 또는 JSON data URI)
func (h *Handler) HandleAttachImage(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	var (
		name    string
		payload *media.Payload
		err     error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, h.encoder.Limit()+(1<<20))
		file, header, ferr := r.FormFile("image")
		if ferr != nil {
			h.respond(w, ws.Snapshot(), apperr.Encoding("Gagal membaca file gambar.", ferr))
			return
		}
		defer file.Close()
		name = header.Filename
		payload, err = h.encoder.Encode(file, header.Header.Get("Content-Type"))
	} else {
		var req ImageRequest
		if !decodeBody(w, r, &req) {
			return
		}
		name = req.Name
		payload, err = h.encoder.EncodeDataURI(req.DataURI)
	}
	if err != nil {
		h.logger.Warn("Image rejected", zap.Error(err))
		h.respond(w, ws.Snapshot(), err)
		return
	}

	h.respond(w, ws.AttachImage(name, payload), nil)
}

// HandleDetachImage - DELETE .../image
func (h *Handler) HandleDetachImage(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	h.respond(w, ws.DetachImage(), nil)
}

// HandleDevelop - POST .../develop {"source":"text"|"image"}
func (h *Handler) HandleDevelop(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req DevelopRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	switch req.Source {
	case "":
		req.Source = SourceText
	case SourceText, SourceImage:
	default:
		writeInvalid(w, "source must be \"text\" or \"image\"")
		return
	}

	snap, err := ws.Develop(r.Context(), req.Source)
	h.respond(w, snap, err)
}

// HandleGenerate - POST .../generate
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	snap, err := ws.Generate(r.Context())
	h.respondWith(w, snap, err, apperr.FinalMessage)
}

// HandleReset - POST .../reset
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	snap, err := ws.Reset()
	h.respond(w, snap, err)
}

// HandleEditSource - PUT .../artifacts/source
func (h *Handler) HandleEditSource(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req SourceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	snap, err := ws.EditSource(req.Text)
	h.respond(w, snap, err)
}

// HandleWebSocket - GET /ws?session=
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ServeWS(h.sessions, w, r)
}

// HandleCleanup - POST /admin/cleanup
func (h *Handler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	cleaned := h.sessions.CleanupExpiredSessions()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "Cleanup completed",
		"cleaned": cleaned,
		"active":  h.sessions.Count(),
	})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	session, ok := h.sessions.Get(mux.Vars(r)["sessionId"])
	if !ok {
		writeNotFound(w)
		return nil, false
	}
	return session, true
}

func (h *Handler) workspace(w http.ResponseWriter, r *http.Request) (*Workspace, bool) {
	v, err := scene.ParseVariant(mux.Vars(r)["variant"])
	if err != nil {
		writeInvalid(w, err.Error())
		return nil, false
	}
	session, ok := h.session(w, r)
	if !ok {
		return nil, false
	}
	return session.Workspace(v), true
}

// respond - 스냅샷 + 에러를 공통 응답으로
func (h *Handler) respond(w http.ResponseWriter, snap Snapshot, err error) {
	h.respondWith(w, snap, err, apperr.UserMessage)
}

func (h *Handler) respondWith(w http.ResponseWriter, snap Snapshot, err error, message func(error) string) {
	if err == nil {
		writeJSON(w, http.StatusOK, Response{Success: true, Workspace: &snap})
		return
	}
	writeJSON(w, statusFor(err), Response{
		Success:      false,
		Workspace:    &snap,
		ErrorMessage: message(err),
		ErrorCode:    apperr.Code(err),
	})
}

// statusFor - 에러 Kind → HTTP status (quota 소진은 429)
func statusFor(err error) int {
	if apperr.IsQuota(err) {
		return http.StatusTooManyRequests
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindEncoding:
		return http.StatusBadRequest
	case apperr.KindBusy:
		return http.StatusConflict
	case apperr.KindTransport, apperr.KindMalformed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeInvalid(w, "Invalid request format")
		return false
	}
	return true
}

func writeInvalid(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, Response{
		Success:      false,
		ErrorMessage: message,
		ErrorCode:    apperr.ErrCodeInvalidRequest,
	})
}

func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, Response{
		Success:      false,
		ErrorMessage: "Session not found",
		ErrorCode:    apperr.ErrCodeNotFound,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
