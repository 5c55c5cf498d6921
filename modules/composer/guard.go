package composer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"scene-prompt-server/modules/scene"
)

// Guard - (session, variant, action) 단위 재진입 방지
// Acquire 가 false 를 반환하면 이미 진행 중
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

// GuardKey - guard 키 생성
func GuardKey(sessionID string, variant scene.Variant, action Action) string {
	return fmt.Sprintf("scene:inflight:%s:%s:%s", sessionID, variant, action)
}

// MemoryGuard - 단일 프로세스용 guard
type MemoryGuard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{inflight: make(map[string]struct{})}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inflight[key]; busy {
		return nil, false, nil
	}
	g.inflight[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inflight, key)
			g.mu.Unlock()
		})
	}, true, nil
}

// 토큰이 일치할 때만 삭제
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard - 여러 인스턴스가 공유하는 guard (SET NX PX)
// TTL 은 프로세스가 죽었을 때 잠금이 남지 않도록 하는 상한
type RedisGuard struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisGuard{rdb: rdb, ttl: ttl, logger: logger}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := g.rdb.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire guard %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// 요청 context 가 이미 끝났을 수 있으므로 별도 context 사용
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, g.rdb, []string{key}, token).Err(); err != nil {
				// 해제 실패 시 TTL 만료까지 같은 작업이 막힘
				g.logger.Warn("⚠️  Failed to release guard", zap.String("key", key), zap.Duration("ttl", g.ttl), zap.Error(err))
			}
		})
	}, true, nil
}
