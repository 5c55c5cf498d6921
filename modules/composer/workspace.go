package composer

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"scene-prompt-server/modules/common/apperr"
	"scene-prompt-server/modules/common/media"
	"scene-prompt-server/modules/scene"
)

// 사용자 메시지
const (
	msgIdeaRequired     = `Mohon masukkan "Ide Prompt" terlebih dahulu.`
	msgImageRequired    = "Mohon unggah gambar untuk pengembangan berbasis gambar."
	msgSceneIncomplete  = `Mohon isi "Subjek" dan "Aksi" terlebih dahulu.`
	msgNoFinalPrompt    = "Belum ada prompt final untuk diedit."
	msgUnknownField     = "Field tidak dikenal: "
	msgInvalidFieldEdit = "Nilai tidak valid untuk "
)

// Workspace - 세션 내 variant 하나(탭)의 상태
// 모든 변경은 mu 로 직렬화, 모델 호출은 잠금 밖에서 스냅샷으로 수행
type Workspace struct {
	mu sync.Mutex

	sessionID string
	variant   scene.Variant

	idea      string
	image     *attachedImage
	scene     scene.Descriptor
	artifacts *ArtifactSet
	errMsg    string

	developState  DevelopState
	generateState GenerateState
	inflight      map[Action]bool

	service *Service
	guard   Guard
	notify  func(Snapshot)
	logger  *zap.Logger
}

// WorkspaceDeps - 워크스페이스 의존성
type WorkspaceDeps struct {
	Service *Service
	Guard   Guard
	// Notify - 상태 변경 시 호출 (잠금 밖)
	Notify func(Snapshot)
	Logger *zap.Logger
}

func NewWorkspace(sessionID string, v scene.Variant, deps WorkspaceDeps) *Workspace {
	if deps.Guard == nil {
		deps.Guard = NewMemoryGuard()
	}
	if deps.Notify == nil {
		deps.Notify = func(Snapshot) {}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Workspace{
		sessionID:     sessionID,
		variant:       v,
		scene:         scene.Default(v),
		developState:  DevelopIdle,
		generateState: GenerateIdle,
		inflight:      make(map[Action]bool),
		service:       deps.Service,
		guard:         deps.Guard,
		notify:        deps.Notify,
		logger:        deps.Logger.With(zap.String("session", sessionID), zap.String("variant", string(v))),
	}
}

func (w *Workspace) Variant() scene.Variant {
	return w.variant
}

// Snapshot - 현재 상태 복사본
func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Workspace) snapshotLocked() Snapshot {
	loading := w.loadingLocked()
	s := Snapshot{
		SessionID:     w.sessionID,
		Variant:       w.variant,
		Idea:          w.idea,
		Scene:         w.scene.Clone(),
		Error:         w.errMsg,
		DevelopState:  w.developState,
		GenerateState: w.generateState,
		Loading:       loading,

		Resettable:      w.resettableLocked(),
		CanDevelopText:  !loading && strings.TrimSpace(w.idea) != "",
		CanDevelopImage: !loading && w.image != nil,
		CanGenerate:     !loading && w.sceneCompleteLocked(),
	}
	if w.image != nil {
		s.Image = &ImageInfo{Name: w.image.name, MIMEType: w.image.payload.MIMEType, Size: w.image.payload.Size}
	}
	if w.artifacts != nil {
		a := *w.artifacts
		a.Scene = a.Scene.Clone()
		s.Artifacts = &a
	}
	return s
}

func (w *Workspace) loadingLocked() bool {
	for _, busy := range w.inflight {
		if busy {
			return true
		}
	}
	return false
}

func (w *Workspace) resettableLocked() bool {
	return strings.TrimSpace(w.idea) != "" ||
		w.image != nil ||
		!w.scene.Equal(scene.Default(w.variant))
}

func (w *Workspace) sceneCompleteLocked() bool {
	return strings.TrimSpace(w.scene.Get(scene.FieldSubject)) != "" &&
		strings.TrimSpace(w.scene.Get(scene.FieldAction)) != ""
}

// commit - 잠금 안에서 변경 후 알림
func (w *Workspace) commit(mutate func()) Snapshot {
	w.mu.Lock()
	mutate()
	snap := w.snapshotLocked()
	w.mu.Unlock()

	w.notify(snap)
	return snap
}

// SetIdea - 아이디어 텍스트 설정
func (w *Workspace) SetIdea(idea string) Snapshot {
	return w.commit(func() { w.idea = idea })
}

// SetFields - 필드 직접 편집 (전부 검증 후 한 번에 반영)
func (w *Workspace) SetFields(values map[string]string) (Snapshot, error) {
	var err error
	snap := w.commit(func() {
		next := w.scene.Clone()
		for name, value := range values {
			if !next.Schema().Has(name) {
				err = apperr.Validation(msgUnknownField + name)
				return
			}
			if setErr := next.Set(name, value); setErr != nil {
				err = apperr.Validation(msgInvalidFieldEdit + next.Schema().Label(name))
				return
			}
		}
		w.scene = next
	})
	return snap, err
}

// AttachImage - 이미지 첨부 (기존 이미지 교체)
func (w *Workspace) AttachImage(name string, payload *media.Payload) Snapshot {
	return w.commit(func() {
		w.image = &attachedImage{name: name, payload: payload}
	})
}

// DetachImage - 첨부 이미지 제거
func (w *Workspace) DetachImage() Snapshot {
	return w.commit(func() { w.image = nil })
}

// failLocal - 요청 없이 끝나는 검증 실패
func (w *Workspace) failLocal(err error) (Snapshot, error) {
	return w.commit(func() { w.errMsg = apperr.UserMessage(err) }), err
}

// Develop - 텍스트/이미지로 장면 필드 채우기
func (w *Workspace) Develop(ctx context.Context, source DevelopSource) (Snapshot, error) {
	release, ok, err := w.guard.Acquire(ctx, GuardKey(w.sessionID, w.variant, ActionDevelop))
	if err != nil {
		return w.Snapshot(), err
	}
	if !ok {
		return w.Snapshot(), apperr.Busy("Pengembangan prompt")
	}
	defer release()

	w.mu.Lock()
	idea := w.idea
	var payload *media.Payload
	switch source {
	case SourceImage:
		if w.image == nil {
			w.mu.Unlock()
			return w.failLocal(apperr.Validation(msgImageRequired))
		}
		payload = w.image.payload
	default:
		if strings.TrimSpace(idea) == "" {
			w.mu.Unlock()
			return w.failLocal(apperr.Validation(msgIdeaRequired))
		}
	}
	prior := w.scene.Clone()
	w.errMsg = ""
	w.developState = DevelopRequesting
	w.inflight[ActionDevelop] = true
	snap := w.snapshotLocked()
	w.mu.Unlock()
	w.notify(snap)

	w.logger.Info("🧠 Develop started", zap.String("source", string(source)))
	start := time.Now()

	var (
		developed scene.Descriptor
		newIdea   string
	)
	if source == SourceImage {
		developed, newIdea, err = w.service.DevelopFromImage(ctx, w.variant, payload, prior)
	} else {
		developed, err = w.service.Develop(ctx, w.variant, idea, prior)
	}

	snap = w.commit(func() {
		w.inflight[ActionDevelop] = false
		if err != nil {
			w.developState = DevelopFailed
			w.errMsg = apperr.UserMessage(err)
			return
		}
		w.developState = DevelopSuccess
		w.scene = developed
		if source == SourceImage && strings.TrimSpace(newIdea) != "" {
			w.idea = newIdea
		}
	})

	if err != nil {
		w.logFailure("❌ Develop failed", err)
		return snap, err
	}
	w.logger.Info("✅ Develop finished", zap.Duration("elapsed", time.Since(start)))
	return snap, nil
}

// Generate - 최종 결과물 5종 생성
// 병렬 단계(any_failed) 실패 시에만 이전 결과물을 비움, 문단 작성 실패는 이전 결과 유지
func (w *Workspace) Generate(ctx context.Context) (Snapshot, error) {
	release, ok, err := w.guard.Acquire(ctx, GuardKey(w.sessionID, w.variant, ActionGenerate))
	if err != nil {
		return w.Snapshot(), err
	}
	if !ok {
		return w.Snapshot(), apperr.Busy("Pembuatan prompt final")
	}
	defer release()

	w.mu.Lock()
	if !w.sceneCompleteLocked() {
		w.mu.Unlock()
		return w.failLocal(apperr.Validation(msgSceneIncomplete))
	}
	snapshot := w.scene.Clone()
	w.errMsg = ""
	w.inflight[ActionGenerate] = true
	w.mu.Unlock()

	w.logger.Info("🎬 Generate started")
	start := time.Now()

	var last GenerateState
	set, err := w.service.GenerateFinal(ctx, snapshot, func(state GenerateState) {
		last = state
		w.commit(func() { w.generateState = state })
	})

	snap := w.commit(func() {
		w.inflight[ActionGenerate] = false
		if err != nil {
			if last == GenerateAnyFailed {
				w.artifacts = nil
			}
			w.errMsg = apperr.FinalMessage(err)
			return
		}
		w.artifacts = set
	})

	if err != nil {
		w.logFailure("❌ Generate failed", err)
		return snap, err
	}
	w.logger.Info("✅ Generate finished", zap.Duration("elapsed", time.Since(start)))
	return snap, nil
}

func (w *Workspace) logFailure(msg string, err error) {
	if isCanceled(err) {
		w.logger.Info(msg+" (canceled)", zap.Error(err))
		return
	}
	w.logger.Error(msg,
		zap.String("kind", string(apperr.KindOf(err))),
		zap.Bool("quota", apperr.IsQuota(err)),
		zap.Error(err))
}

// Reset - 아이디어, 이미지, 장면, 에러, 결과물 초기화
// 진행 중인 작업이 있으면 거부
func (w *Workspace) Reset() (Snapshot, error) {
	w.mu.Lock()
	if w.loadingLocked() {
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return snap, apperr.Busy("Proses")
	}
	w.idea = ""
	w.image = nil
	w.scene = scene.Default(w.variant)
	w.errMsg = ""
	w.artifacts = nil
	w.developState = DevelopIdle
	w.generateState = GenerateIdle
	snap := w.snapshotLocked()
	w.mu.Unlock()

	w.notify(snap)
	return snap, nil
}

// EditSource - 원문(인도네시아어) 문단만 수정
func (w *Workspace) EditSource(text string) (Snapshot, error) {
	var err error
	snap := w.commit(func() {
		if w.artifacts == nil {
			err = apperr.Validation(msgNoFinalPrompt)
			return
		}
		next := *w.artifacts
		next.Source = text
		w.artifacts = &next
	})
	return snap, err
}
