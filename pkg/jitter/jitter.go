// Package jitter предоставляет экспоненциальные задержки со случайной добавкой.
// Используется фоновым загрузчиком артефактов, чтобы несколько реплик сервиса
// не опрашивали хранилище синхронно.
package jitter

import (
	"math/rand"
	"sync"
	"time"
)

// DefaultJitter — стандартный коэффициент джиттера (50%)
const DefaultJitter = 0.5

var (
	globalRand = rand.New(rand.NewSource(time.Now().UnixNano()))
	randMutex  sync.Mutex
)

// Backoff описывает политику задержек между попытками.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64 // коэффициент джиттера, 0.5 означает до +50%
	rng    *rand.Rand
}

func NewBackoff(base, max time.Duration) *Backoff {
	return &Backoff{
		Base:   base,
		Max:    max,
		Factor: DefaultJitter,
	}
}

// WithRand задаёт собственный генератор (детерминированные тесты).
func (b *Backoff) WithRand(rng *rand.Rand) *Backoff {
	b.rng = rng
	return b
}

// Next возвращает задержку для попытки attempt (нумерация с нуля).
// Результат лежит в диапазоне [d, d*(1+Factor)], где d = min(Base*2^attempt, Max).
func (b *Backoff) Next(attempt int) time.Duration {
	d := b.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= b.Max {
			d = b.Max
			break
		}
	}
	if d > b.Max {
		d = b.Max
	}

	return d + time.Duration(b.random()*b.Factor*float64(d))
}

func (b *Backoff) random() float64 {
	if b.rng != nil {
		return b.rng.Float64()
	}

	randMutex.Lock()
	defer randMutex.Unlock()
	return globalRand.Float64()
}
