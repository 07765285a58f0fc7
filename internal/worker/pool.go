// internal/worker/pool.go
package worker

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Task is a unit of blocking work, typically a storage call. Tasks must
// not mutate session state directly; they call back into the owning
// component, which takes its own lock.
type Task func()

// Pool runs blocking work off the message-handling goroutines so a read
// pump never stalls on the database.
type Pool struct {
	tasks  chan Task
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *logrus.Logger
}

// New starts workers goroutines draining a queue of queueSize tasks.
func New(workers, queueSize int, logger *logrus.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		tasks:  make(chan Task, queueSize),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	logger.Infof("worker pool started with %d workers (queue %d)", workers, queueSize)
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.run(id, task)
		}
	}
}

func (p *Pool) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Errorf("worker %d recovered from panic: %v", id, r)
		}
	}()
	task()
}

// Submit enqueues a task. If the queue is full it drops the task and logs,
// rather than blocking the caller; protocol handling is fire-and-forget.
func (p *Pool) Submit(task Task) {
	select {
	case p.tasks <- task:
	case <-p.ctx.Done():
	default:
		p.logger.Warn("worker queue full, dropping task")
	}
}

// Stop shuts the pool down and waits for in-flight tasks to finish.
func (p *Pool) Stop() {
	p.cancel()
	p.wg.Wait()
}
