package composer

import (
	"context"
	"errors"
	"sync"

	"scene-prompt-server/modules/common/apperr"
	"scene-prompt-server/modules/prompt"
)

// fakeGenerator - Operation 별 고정 응답
type fakeGenerator struct {
	mu        sync.Mutex
	replies   map[prompt.Operation]string
	failures  map[prompt.Operation]error
	requests  []*prompt.Request
	block     chan struct{} // 닫힐 때까지 Generate 대기
	started   chan struct{}
	startOnce sync.Once
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		replies: map[prompt.Operation]string{
			prompt.OpDevelopFromIdea:   "```json\n" + `{"subjek":"Seorang astronot","aksi":"bersantai di kursi pantai","tempat":"pantai Mars","aspekRasio":"16:9","bogus":"x"}` + "\n```",
			prompt.OpDevelopFromImage:  `{"promptIdea":"Astronot bersantai di Mars","subjek":"Astronot","aksi":"duduk"}`,
			prompt.OpComposeParagraph:  "Fotografi potret ultra-realistis seorang astronot bersantai di pantai Mars.",
			prompt.OpTranslate:         "Ultra-realistic portrait photography of an astronaut relaxing on a Mars beach.",
			prompt.OpStructuredListing: "Subject: An astronaut\nAction: Relaxing on a beach chair",
			prompt.OpStructuredJSON:    "```json\n" + `{"subject":"An astronaut","action":"Relaxing on a beach chair","aspectRatio":"16:9"}` + "\n```",
			prompt.OpStoryExpansion:    "**Scene 1: Exposition/Inciting Incident:** ...",
		},
		failures: map[prompt.Operation]error{},
	}
}

func (f *fakeGenerator) Generate(ctx context.Context, req *prompt.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	reply, err := f.replies[req.Operation], f.failures[req.Operation]
	block, started := f.block, f.started
	f.mu.Unlock()

	if started != nil {
		f.startOnce.Do(func() { close(started) })
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", apperr.Transport("Permintaan dibatalkan.", ctx.Err())
		}
	}
	if err != nil {
		return "", err
	}
	if reply == "" {
		return "", errors.New("no fake reply configured")
	}
	return reply, nil
}

func (f *fakeGenerator) fail(op prompt.Operation, err error) {
	f.mu.Lock()
	f.failures[op] = err
	f.mu.Unlock()
}

func (f *fakeGenerator) reply(op prompt.Operation, text string) {
	f.mu.Lock()
	f.replies[op] = text
	f.mu.Unlock()
}

// hold - 다음 호출부터 release 전까지 대기
func (f *fakeGenerator) hold() (started <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block = make(chan struct{})
	f.started = make(chan struct{})
	f.startOnce = sync.Once{}
	block := f.block
	return f.started, func() { close(block) }
}

func (f *fakeGenerator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeGenerator) operations() []prompt.Operation {
	f.mu.Lock()
	defer f.mu.Unlock()
	ops := make([]prompt.Operation, len(f.requests))
	for i, r := range f.requests {
		ops[i] = r.Operation
	}
	return ops
}
