// Package transcript persists chat turns off the editor's RPC path.
//
// The pool decouples storage operations from command handling so a slow or
// unavailable database never stalls Neovim.
package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/vilm/pkg/logger"
	"github.com/papercomputeco/vilm/pkg/merkle"
	"github.com/papercomputeco/vilm/pkg/storage"
)

var (
	defaultNumWorkers   uint = 2
	defaultJobQueueSize uint = 64
	defaultPutTimeout        = 10 * time.Second
)

// Job is a unit of work for the worker pool: the nodes of one turn,
// root-most first.
type Job struct {
	Session string
	Nodes   []*merkle.Node
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the storage backend for persisting nodes.
	Driver storage.Driver

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 64).
	QueueSize uint

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Pool processes storage jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Driver == nil {
		return nil, fmt.Errorf("transcript pool requires a storage driver")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: log,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is
// closed, resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("job not queued, pool closed", "session", job.Session)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"session", job.Session,
			"nodes", len(job.Nodes),
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"session", job.Session,
			"nodes", len(job.Nodes),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// It is safe to call more than once.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
	})
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("transcript worker stopped", "worker_id", id)
}

// processJob stores every node of a turn. A failure stops the turn so a
// child is never stored without the parent that precedes it in the job.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultPutTimeout)
	defer cancel()

	var head string
	for _, node := range job.Nodes {
		isNew, err := p.config.Driver.Put(ctx, node)
		if err != nil {
			p.logger.Error("transcript storage failed",
				"session", job.Session,
				"hash", node.Hash,
				"error", err,
			)
			return
		}

		p.logger.Debug("stored message",
			"hash", node.Hash,
			"role", node.Bucket.Role,
			"is_new", isNew,
		)
		head = node.Hash
	}

	if head != "" {
		p.logger.Info("conversation stored", "head", head, "session", job.Session)
	}
}
