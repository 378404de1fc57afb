// Package taskq — ограниченный пул воркеров для фоновых задач, отвязанных от HTTP-запроса.
package taskq

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/logger"
)

var ErrClosed = fmt.Errorf("task queue is closed")

// Task — единица фоновой работы.
type Task struct {
	ID  string
	Run func(ctx context.Context) error
	// OnDone вызывается ровно один раз после завершения задачи, в том числе при панике и отмене.
	OnDone func(err error)
}

type item struct {
	task Task
	ctx  context.Context
}

// Queue выполняет задачи в фиксированном числе горутин.
type Queue struct {
	items   chan item
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  logger.Logger
}

// New запускает workers воркеров с буфером size задач.
func New(workers, size int, logger logger.Logger) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if size < 0 {
		size = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		items:   make(chan item, size),
		cancels: make(map[string]context.CancelFunc),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}

	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer q.wg.Done()
			for it := range q.items {
				q.execute(it)
			}
		}()
	}

	return q
}

// Enqueue ставит задачу в очередь и никогда не блокируется.
// Возвращает e.ErrQueueFull при заполненном буфере и e.ErrDuplicateTask для уже известного ID.
func (q *Queue) Enqueue(t Task) error {
	const op = "Queue.Enqueue"

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return e.Wrap(op, ErrClosed)
	}
	if _, ok := q.cancels[t.ID]; ok {
		return e.Wrap(op, e.ErrDuplicateTask)
	}

	ctx, cancel := context.WithCancel(q.ctx)
	select {
	case q.items <- item{task: t, ctx: ctx}:
		q.cancels[t.ID] = cancel
		return nil
	default:
		cancel()
		return e.Wrap(op, e.ErrQueueFull)
	}
}

// Cancel отменяет контекст задачи. Задача, ещё не начавшая выполнение, будет пропущена.
func (q *Queue) Cancel(id string) bool {
	q.mu.Lock()
	cancel, ok := q.cancels[id]
	q.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

// Active возвращает число поставленных и выполняющихся задач.
func (q *Queue) Active() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cancels)
}

// Stop перестаёт принимать задачи и дожидается выполнения уже поставленных.
// По истечении ctx отменяет оставшиеся задачи.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.items)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		return e.Wrap("Queue.Stop", ctx.Err())
	}
}

func (q *Queue) execute(it item) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", it.task.ID, r)
			q.logger.Errorf(err, "task panic, stack: %s", debug.Stack())
		}

		q.mu.Lock()
		if cancel, ok := q.cancels[it.task.ID]; ok {
			cancel()
			delete(q.cancels, it.task.ID)
		}
		q.mu.Unlock()

		if it.task.OnDone != nil {
			it.task.OnDone(err)
		}
	}()

	if ctxErr := it.ctx.Err(); ctxErr != nil {
		err = ctxErr
		return
	}

	err = it.task.Run(it.ctx)
}
