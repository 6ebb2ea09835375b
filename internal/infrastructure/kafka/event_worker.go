package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/jchangwan/campus-closet-share/internal/usecase"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// MessageWriter — то, во что воркер пишет пачки сообщений (Producer в проде).
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

const writeTimeout = 10 * time.Second

// EventWorker принимает события поиска в очередь в памяти и пачками отправляет их в Kafka.
// PublishSearchEvent никогда не блокирует запрос: при переполненной очереди событие отбрасывается.
type EventWorker struct {
	writer        MessageWriter
	logger        logger.Logger
	events        chan *usecase.SearchEvent
	stop          chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
	batchSize     int
	flushInterval time.Duration
}

func NewEventWorker(writer MessageWriter, logger logger.Logger, bufferSize, batchSize int, flushInterval time.Duration) *EventWorker {
	return &EventWorker{
		writer:        writer,
		logger:        logger,
		events:        make(chan *usecase.SearchEvent, bufferSize),
		stop:          make(chan struct{}),
		batchSize:     max(batchSize, 1),
		flushInterval: flushInterval,
	}
}

// PublishSearchEvent ставит событие в очередь без ожидания.
func (w *EventWorker) PublishSearchEvent(_ context.Context, event *usecase.SearchEvent) {
	select {
	case w.events <- event:
	default:
		w.logger.Warnf("search event queue is full, event %s dropped", event.EventID)
	}
}

func (w *EventWorker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run()
	}()
}

// Stop останавливает воркер и отправляет то, что осталось в очереди.
func (w *EventWorker) Stop(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.stop) })

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return e.Wrap("event worker stop", ctx.Err())
	}
}

func (w *EventWorker) run() {
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	batch := make([]*usecase.SearchEvent, 0, w.batchSize)
	for {
		select {
		case event := <-w.events:
			batch = append(batch, event)
			if len(batch) >= w.batchSize {
				batch = w.flush(batch)
			}
		case <-ticker.C:
			batch = w.flush(batch)
		case <-w.stop:
			// Дочитываем очередь перед выходом
			for {
				select {
				case event := <-w.events:
					batch = append(batch, event)
				default:
					w.flush(batch)
					w.logger.Infof("search event worker stopped")
					return
				}
			}
		}
	}
}

// flush отправляет пачку. Временные ошибки повторяются один раз, затем пачка отбрасывается.
func (w *EventWorker) flush(batch []*usecase.SearchEvent) []*usecase.SearchEvent {
	if len(batch) == 0 {
		return batch
	}

	msgs := make([]kafka.Message, 0, len(batch))
	for _, event := range batch {
		value, err := json.Marshal(event)
		if err != nil {
			w.logger.Warnf("marshal search event %s failed: %v", event.EventID, err)
			continue
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(event.EventID),
			Value: value,
			Time:  event.CreatedAt,
		})
	}

	for attempt := 0; attempt < 2; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := w.writer.WriteMessages(ctx, msgs...)
		cancel()

		if err == nil {
			w.logger.Debugf("%d search event(s) sent", len(msgs))
			break
		}
		if attempt == 0 && isRetryableError(err) {
			w.logger.Warnf("Temporary Kafka failure, will retry: %v", err)
			continue
		}
		w.logger.Warnf("Kafka failure, %d search event(s) dropped: %v", len(msgs), err)
		break
	}

	return batch[:0]
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	retryablePhrases := []string{
		"connection refused",
		"i/o timeout",
		"network is unreachable",
		"broker not available",
		"connection reset",
		"broken pipe",
		"no such host",
	}
	for _, phrase := range retryablePhrases {
		if strings.Contains(errStr, phrase) {
			return true
		}
	}
	return false
}
