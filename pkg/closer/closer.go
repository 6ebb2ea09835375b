package closer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jchangwan/campus-closet-share/pkg/logger"
)

// Func — сигнатура функции закрытия ресурса.
type Func func(ctx context.Context) error

type namedFunc struct {
	name string
	fn   Func
}

// Closer закрывает зарегистрированные ресурсы в порядке LIFO.
// Если контекст истекает раньше, оставшиеся ресурсы закрываются параллельно с forcedTimeout.
type Closer struct {
	mu            sync.Mutex
	once          sync.Once
	funcs         []namedFunc
	forcedTimeout time.Duration
	logger        logger.Logger
}

func NewCloser(forcedTimeout time.Duration, logger logger.Logger) *Closer {
	const defaultForcedTimeout = 2 * time.Second

	if forcedTimeout <= 0 {
		forcedTimeout = defaultForcedTimeout
	}

	return &Closer{
		forcedTimeout: forcedTimeout,
		logger:        logger,
	}
}

// Add регистрирует функцию закрытия под именем name (имя попадает в логи и ошибки).
func (c *Closer) Add(name string, f Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs = append(c.funcs, namedFunc{name: name, fn: f})
}

// AddSimple регистрирует функцию без контекста и без ошибки, например pool.Close.
func (c *Closer) AddSimple(name string, f func()) {
	c.Add(name, func(context.Context) error {
		f()
		return nil
	})
}

// Close вызывается один раз; повторные вызовы возвращают nil.
func (c *Closer) Close(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		funcs := append([]namedFunc(nil), c.funcs...)
		c.mu.Unlock()

		stopIdx, errs := c.gracefulClose(ctx, funcs)
		if stopIdx < 0 {
			if len(errs) > 0 {
				err = fmt.Errorf("shutdown finished with error(s):\n%s", strings.Join(errs, "\n"))
			}
			return
		}

		errs = append(errs, c.forcedClose(funcs[:stopIdx+1])...)
		err = fmt.Errorf(
			"shutdown interrupted after %d/%d funcs:\n%s",
			len(funcs)-1-stopIdx,
			len(funcs),
			strings.Join(errs, "\n"),
		)
	})

	return err
}

// gracefulClose возвращает -1, если все функции отработали, иначе индекс первой незакрытой.
func (c *Closer) gracefulClose(ctx context.Context, funcs []namedFunc) (int, []string) {
	var errs []string
	for i := len(funcs) - 1; i >= 0; i-- {
		f := funcs[i]
		done := make(chan error, 1)

		go func() {
			done <- f.fn(ctx)
		}()

		select {
		case err := <-done:
			if err != nil {
				errs = append(errs, fmt.Sprintf("[!] %s: %v", f.name, err))
				continue
			}
			c.logger.Debugf("%s closed", f.name)
		case <-ctx.Done():
			c.logger.Warnf("shutdown deadline reached while closing %s", f.name)
			return i, errs
		}
	}

	return -1, errs
}

func (c *Closer) forcedClose(funcs []namedFunc) []string {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []string
	)

	ctx, cancel := context.WithTimeout(context.Background(), c.forcedTimeout)
	defer cancel()

	for _, f := range funcs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.fn(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Sprintf("[FORCED] %s: %v", f.name, err))
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	return errs
}
