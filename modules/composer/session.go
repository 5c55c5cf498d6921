package composer

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"scene-prompt-server/modules/scene"
)

var (
	sessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scene_sessions_created_total",
		Help: "Total number of sessions created.",
	})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scene_sessions_active",
		Help: "Number of live sessions.",
	})

	sessionsCleanedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scene_sessions_cleaned_total",
			Help: "Total number of sessions removed by reason.",
		},
		[]string{"reason"},
	)

	wsConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scene_ws_connections_total",
		Help: "Total number of WebSocket subscribers accepted.",
	})
)

// Session - 사용자 세션 (video / image 워크스페이스 2개 + WebSocket 구독자)
type Session struct {
	id           string
	workspaces   map[scene.Variant]*Workspace
	clients      map[string]*Client
	mutex        sync.RWMutex
	createdAt    time.Time
	lastActivity time.Time
	logger       *zap.Logger
}

// SessionInfo - 세션 조회 응답
type SessionInfo struct {
	SessionID    string    `json:"sessionId"`
	ClientCount  int       `json:"clientCount"`
	Variants     []string  `json:"variants"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	Age          string    `json:"age"`
	Inactive     string    `json:"inactive"`
}

func (s *Session) ID() string {
	return s.id
}

// Workspace - variant 워크스페이스
func (s *Session) Workspace(v scene.Variant) *Workspace {
	s.touch()
	return s.workspaces[v]
}

func (s *Session) touch() {
	s.mutex.Lock()
	s.lastActivity = time.Now()
	s.mutex.Unlock()
}

// Info - 세션 정보
func (s *Session) Info() SessionInfo {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return SessionInfo{
		SessionID:    s.id,
		ClientCount:  len(s.clients),
		Variants:     []string{string(scene.Video), string(scene.Image)},
		CreatedAt:    s.createdAt,
		LastActivity: s.lastActivity,
		Age:          time.Since(s.createdAt).Round(time.Second).String(),
		Inactive:     time.Since(s.lastActivity).Round(time.Second).String(),
	}
}

// Snapshots - 모든 워크스페이스 상태
func (s *Session) Snapshots() []Snapshot {
	return []Snapshot{
		s.workspaces[scene.Video].Snapshot(),
		s.workspaces[scene.Image].Snapshot(),
	}
}

// addClient - WebSocket 구독자 추가
func (s *Session) addClient(client *Client) {
	s.mutex.Lock()
	s.clients[client.id] = client
	s.lastActivity = time.Now()
	clientCount := len(s.clients)
	s.mutex.Unlock()

	wsConnectionsTotal.Inc()
	s.logger.Info("👤 Client joined", zap.String("client", client.id), zap.Int("clients", clientCount))

	// 새 구독자에게 현재 상태 전송
	for _, snap := range s.Snapshots() {
		client.enqueue(Event{Type: EventClientJoined, SessionID: s.id, Workspace: &snap, At: time.Now()})
	}
}

// removeClient - 구독자 제거
func (s *Session) removeClient(clientID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if client, exists := s.clients[clientID]; exists {
		close(client.send)
		delete(s.clients, clientID)
		s.lastActivity = time.Now()
		s.logger.Info("👋 Client left", zap.String("client", clientID), zap.Int("remaining", len(s.clients)))
	}
}

// broadcastToAll - 모든 구독자에게 이벤트 전송 (느린 구독자는 끊음)
func (s *Session) broadcastToAll(event Event) {
	messageBytes, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Error marshaling event", zap.Error(err))
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	for clientID, client := range s.clients {
		select {
		case client.send <- messageBytes:
		default:
			close(client.send)
			delete(s.clients, clientID)
			s.logger.Warn("Dropped slow client", zap.String("client", clientID))
		}
	}
}

// disconnectAll - 모든 구독자 연결 종료
func (s *Session) disconnectAll() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for clientID, client := range s.clients {
		close(client.send)
		delete(s.clients, clientID)
	}
}

// SessionOptions - 세션 수명 설정
type SessionOptions struct {
	TTL     time.Duration // 생성 후 최대 수명
	IdleTTL time.Duration // 구독자 없이 방치된 최대 시간
}

// SessionManager - 세션 관리
type SessionManager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex

	service *Service
	guard   Guard
	opts    SessionOptions
	logger  *zap.Logger
	now     func() time.Time
}

func NewSessionManager(service *Service, guard Guard, opts SessionOptions, logger *zap.Logger) *SessionManager {
	if guard == nil {
		guard = NewMemoryGuard()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 2 * time.Hour
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		service:  service,
		guard:    guard,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Create - 새 세션 생성 (video / image 워크스페이스 포함)
func (sm *SessionManager) Create() *Session {
	now := sm.now()
	session := &Session{
		id:           uuid.NewString(),
		clients:      make(map[string]*Client),
		createdAt:    now,
		lastActivity: now,
	}
	session.logger = sm.logger.With(zap.String("session", session.id))

	notify := func(snap Snapshot) {
		session.broadcastToAll(Event{Type: EventStateChanged, SessionID: session.id, Workspace: &snap, At: time.Now()})
	}
	session.workspaces = map[scene.Variant]*Workspace{
		scene.Video: NewWorkspace(session.id, scene.Video, WorkspaceDeps{Service: sm.service, Guard: sm.guard, Notify: notify, Logger: sm.logger}),
		scene.Image: NewWorkspace(session.id, scene.Image, WorkspaceDeps{Service: sm.service, Guard: sm.guard, Notify: notify, Logger: sm.logger}),
	}

	sm.mutex.Lock()
	sm.sessions[session.id] = session
	active := len(sm.sessions)
	sm.mutex.Unlock()

	sessionsCreatedTotal.Inc()
	sessionsActive.Set(float64(active))
	sm.logger.Info("✅ Created new session", zap.String("session", session.id), zap.Int("active", active))
	return session
}

// Get - 세션 조회
func (sm *SessionManager) Get(sessionID string) (*Session, bool) {
	sm.mutex.RLock()
	session, exists := sm.sessions[sessionID]
	sm.mutex.RUnlock()
	if exists {
		session.touch()
	}
	return session, exists
}

// Close - 세션 종료
func (sm *SessionManager) Close(sessionID string) bool {
	sm.mutex.Lock()
	session, exists := sm.sessions[sessionID]
	if exists {
		delete(sm.sessions, sessionID)
	}
	active := len(sm.sessions)
	sm.mutex.Unlock()

	if !exists {
		return false
	}
	session.broadcastToAll(Event{Type: EventSessionClosed, SessionID: sessionID, At: time.Now()})
	session.disconnectAll()
	sessionsCleanedTotal.WithLabelValues("closed").Inc()
	sessionsActive.Set(float64(active))
	sm.logger.Info("🗑️  Closed session", zap.String("session", sessionID), zap.Int("active", active))
	return true
}

// Count - 활성 세션 수
func (sm *SessionManager) Count() int {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return len(sm.sessions)
}

// CleanupExpiredSessions - 만료(TTL)되었거나 구독자 없이 방치(IdleTTL)된 세션 정리
func (sm *SessionManager) CleanupExpiredSessions() int {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	now := sm.now()
	cleaned := 0
	for sessionID, session := range sm.sessions {
		session.mutex.RLock()
		isExpired := now.Sub(session.createdAt) > sm.opts.TTL
		isInactive := now.Sub(session.lastActivity) > sm.opts.IdleTTL && len(session.clients) == 0
		session.mutex.RUnlock()

		if !isExpired && !isInactive {
			continue
		}

		session.disconnectAll()
		delete(sm.sessions, sessionID)
		cleaned++

		reason := "expired"
		if !isExpired {
			reason = "inactive"
		}
		sessionsCleanedTotal.WithLabelValues(reason).Inc()
		sm.logger.Info("⏰ Cleaned up session",
			zap.String("session", sessionID),
			zap.String("reason", reason),
			zap.Duration("age", now.Sub(session.createdAt)))
	}

	sessionsActive.Set(float64(len(sm.sessions)))
	if cleaned > 0 {
		sm.logger.Info("🧼 Cleaned up expired/inactive sessions", zap.Int("cleaned", cleaned), zap.Int("active", len(sm.sessions)))
	}
	return cleaned
}

// StartCleanupRoutine - 정기 정리 작업 (ctx 종료 시 중단)
func (sm *SessionManager) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sm.CleanupExpiredSessions()
			}
		}
	}()

	sm.logger.Info("🔄 Started session cleanup routine", zap.Duration("interval", interval))
}
