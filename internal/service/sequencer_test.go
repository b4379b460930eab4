package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// TestSequencer_SupersedesPrevious проверяет, что второй запрос отменяет первый,
// а ответ первого отбрасывается.
func TestSequencer_SupersedesPrevious(t *testing.T) {
	seq := NewSequencer()
	key := ViewKey("token-a", "projects")

	started := make(chan struct{})
	firstDone := make(chan error, 1)

	go func() {
		firstDone <- seq.Run(context.Background(), key, func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})
	}()

	<-started
	err := seq.Run(context.Background(), key, func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("второй Run вернул ошибку: %v", err)
	}

	select {
	case err := <-firstDone:
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("первый Run: ожидали ErrSuperseded, получили %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("первый Run не завершился после отмены")
	}

	if n := seq.InFlight(); n != 0 {
		t.Errorf("InFlight() = %d, ожидали 0", n)
	}
}

// TestSequencer_StaleSuccessDiscarded проверяет, что успешный, но устаревший ответ
// всё равно отбрасывается.
func TestSequencer_StaleSuccessDiscarded(t *testing.T) {
	seq := NewSequencer()
	key := ViewKey("token-a", "investments")

	release := make(chan struct{})
	started := make(chan struct{})
	firstDone := make(chan error, 1)

	go func() {
		firstDone <- seq.Run(context.Background(), key, func(ctx context.Context) error {
			close(started)
			<-release
			// Игнорируем отмену и «успешно» возвращаемся
			return nil
		})
	}()

	<-started
	if err := seq.Run(context.Background(), key, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("второй Run вернул ошибку: %v", err)
	}
	close(release)

	if err := <-firstDone; !errors.Is(err, ErrSuperseded) {
		t.Errorf("ожидали ErrSuperseded для устаревшего ответа, получили %v", err)
	}
}

// TestSequencer_IndependentKeys проверяет, что разные ключи не мешают друг другу.
func TestSequencer_IndependentKeys(t *testing.T) {
	seq := NewSequencer()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	keys := []string{
		ViewKey("token-a", "projects"),
		ViewKey("token-a", "investments"),
		ViewKey("token-b", "projects"),
		ViewKey("token-b", "investments"),
	}

	for i, key := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = seq.Run(context.Background(), key, func(ctx context.Context) error {
				time.Sleep(10 * time.Millisecond)
				return ctx.Err()
			})
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("ключ %q: неожиданная ошибка %v", keys[i], err)
		}
	}
}

// TestSequence_ReturnsValue проверяет типизированную обёртку.
func TestSequence_ReturnsValue(t *testing.T) {
	seq := NewSequencer()

	got, err := Sequence(context.Background(), seq, "k", func(context.Context) (int, error) {
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Errorf("Sequence() = %d, %v; ожидали 42, nil", got, err)
	}

	wantErr := errors.New("сбой")
	got, err = Sequence(context.Background(), seq, "k", func(context.Context) (int, error) {
		return 7, wantErr
	})
	if !errors.Is(err, wantErr) || got != 0 {
		t.Errorf("Sequence() = %d, %v; ожидали 0, %v", got, err, wantErr)
	}
}

func TestSessionKey(t *testing.T) {
	a := SessionKey("token-a")
	if a != SessionKey("token-a") {
		t.Error("SessionKey не детерминирован")
	}
	if a == SessionKey("token-b") {
		t.Error("разные токены дали одинаковый ключ")
	}
	if len(a) != 24 {
		t.Errorf("len(SessionKey) = %d, ожидали 24", len(a))
	}
}
