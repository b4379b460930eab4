package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Sequencer упорядочивает запросы списков одной сессии к одному представлению.
// Новый запрос с тем же ключом отменяет контекст предыдущего; ответ,
// который перестал быть последним, отбрасывается с ErrSuperseded.
type Sequencer struct {
	mu       sync.Mutex
	seq      uint64
	inflight map[string]ticket
}

type ticket struct {
	id     uint64
	cancel context.CancelFunc
}

// NewSequencer создаёт пустой Sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{inflight: make(map[string]ticket)}
}

// Run выполняет fn с контекстом, который отменяется следующим Run с тем же ключом.
// Если за время выполнения появился более новый запрос, возвращается ErrSuperseded
// независимо от результата fn.
func (s *Sequencer) Run(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.seq++
	id := s.seq
	if prev, ok := s.inflight[key]; ok {
		prev.cancel()
	}
	s.inflight[key] = ticket{id: id, cancel: cancel}
	s.mu.Unlock()

	err := fn(ctx)

	s.mu.Lock()
	latest, ok := s.inflight[key]
	stale := !ok || latest.id != id
	if !stale {
		delete(s.inflight, key)
	}
	s.mu.Unlock()

	if stale {
		return ErrSuperseded
	}
	return err
}

// InFlight возвращает число ключей с незавершённым запросом.
func (s *Sequencer) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

// Sequence — типизированная обёртка над Sequencer.Run.
func Sequence[T any](ctx context.Context, s *Sequencer, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := s.Run(ctx, key, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// SessionKey возвращает короткий отпечаток токена сессии.
// Сам токен не используется как ключ карт и кэшей.
func SessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:12])
}

// ViewKey строит ключ Sequencer для пары (сессия, представление).
func ViewKey(token, view string) string {
	return SessionKey(token) + ":" + view
}
