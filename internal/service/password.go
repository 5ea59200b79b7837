package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

const defaultHashTimeout = 5 * time.Second

// hasher ограничивает bcrypt по времени и по числу одновременных вычислений.
// Горутина с bcrypt доводит работу до конца даже после таймаута,
// поэтому слот семафора освобождает она сама.
type hasher struct {
	cost    int
	timeout time.Duration
	sem     *semaphore.Weighted

	dummyOnce sync.Once
	dummy     []byte
}

func newHasher(cost int, timeout time.Duration) *hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if timeout <= 0 {
		timeout = defaultHashTimeout
	}

	return &hasher{
		cost:    cost,
		timeout: timeout,
		sem:     semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
}

// Hash возвращает bcrypt-хэш пароля.
func (h *hasher) Hash(ctx context.Context, password string) (string, error) {
	var out []byte
	err := h.run(ctx, func() error {
		b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
		out = b
		return err
	})
	if err != nil {
		return "", err
	}

	return string(out), nil
}

// Compare сообщает, совпадает ли пароль с хэшем.
// Ошибка возвращается только при таймауте или отмене.
func (h *hasher) Compare(ctx context.Context, hash, password string) (bool, error) {
	var ok bool
	err := h.run(ctx, func() error {
		ok = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
		return nil
	})
	if err != nil {
		return false, err
	}

	return ok, nil
}

// CompareDummy тратит столько же времени, сколько сравнение с реальным хэшем.
// Вызывается для неизвестного email, чтобы время ответа не выдавало наличие аккаунта.
func (h *hasher) CompareDummy(ctx context.Context, password string) error {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("snapfood-dummy-password"), h.cost)
	})

	_, err := h.Compare(ctx, string(h.dummy), password)
	return err
}

func (h *hasher) run(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		defer h.sem.Release(1)
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
