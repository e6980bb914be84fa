// Package workerpool runs symmetric-crypto jobs on a fixed set of
// background workers so handshake and UI flows never block on AES-GCM.
// Asymmetric operations stay on the calling flow; they are rare one-shot
// costs and do not belong here.
package workerpool

import (
	"errors"
	"runtime"
	"sync"

	"github.com/dmarkov/parley/internal/cryptox"
)

// Action tags the kind of work a job carries.
type Action string

const (
	ActionEncrypt Action = "encrypt"
	ActionDecrypt Action = "decrypt"
)

// Discipline selects the queue order for jobs waiting on a free worker.
type Discipline int

const (
	// LIFO favors the most recently requested job. For interactive crypto
	// the newest user action matters most, so this is the default.
	LIFO Discipline = iota
	// FIFO processes jobs in arrival order.
	FIFO
)

var (
	ErrClosed        = errors.New("workerpool: closed")
	ErrUnknownAction = errors.New("workerpool: unknown action")
)

// Job describes one unit of symmetric-crypto work.
//
// For ActionEncrypt, Record and Key must be set; the result carries
// ciphertext and nonce. For ActionDecrypt, Ciphertext, Nonce, Key and Out
// (a pointer to decode into) must be set.
type Job struct {
	Action     Action
	Key        []byte
	Record     any
	Ciphertext []byte
	Nonce      []byte
	Out        any
}

// Result is delivered exactly once per submitted job.
type Result struct {
	Ciphertext []byte
	Nonce      []byte
	Err        error
}

type task struct {
	job Job
	out chan Result
}

// Pool is a fixed-size set of workers, each processing one job at a time.
type Pool struct {
	mu         sync.Mutex
	cond       *sync.Cond
	queue      []*task
	discipline Discipline
	closed     bool
	wg         sync.WaitGroup
	size       int
}

// DefaultSize reserves two execution units for the host so heavy crypto
// batches do not starve the control thread.
func DefaultSize() int {
	n := runtime.NumCPU() - 2
	if n < 4 {
		n = 4
	}
	return n
}

// New starts a pool with the given worker count and queue discipline.
// A size below one falls back to DefaultSize.
func New(size int, discipline Discipline) *Pool {
	if size < 1 {
		size = DefaultSize()
	}
	p := &Pool{discipline: discipline, size: size}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Submit hands a job to the pool and returns a channel that will receive
// exactly one Result. If a worker is free the job is picked up immediately;
// otherwise it waits in the queue. The result channel is buffered, so a
// finishing worker moves straight on to the next queued job without waiting
// for the submitter to read its result.
func (p *Pool) Submit(job Job) <-chan Result {
	out := make(chan Result, 1)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		out <- Result{Err: ErrClosed}
		return out
	}
	p.queue = append(p.queue, &task{job: job, out: out})
	p.cond.Signal()
	p.mu.Unlock()

	return out
}

// Encrypt runs an encrypt job and blocks until its result is ready.
func (p *Pool) Encrypt(record any, key []byte) ([]byte, []byte, error) {
	r := <-p.Submit(Job{Action: ActionEncrypt, Record: record, Key: key})
	return r.Ciphertext, r.Nonce, r.Err
}

// Decrypt runs a decrypt job and blocks until its result is ready.
func (p *Pool) Decrypt(ciphertext, nonce, key []byte, out any) error {
	r := <-p.Submit(Job{Action: ActionDecrypt, Ciphertext: ciphertext, Nonce: nonce, Key: key, Out: out})
	return r.Err
}

// Close stops accepting jobs, lets queued work drain, and waits for all
// workers to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		t := p.next()
		if t == nil {
			return
		}
		t.out <- run(t.job)
	}
}

// next blocks until a task is available, honoring the queue discipline.
// It returns nil once the pool is closed and the queue is drained.
func (p *Pool) next() *task {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.queue) == 0 {
		if p.closed {
			return nil
		}
		p.cond.Wait()
	}

	var t *task
	if p.discipline == LIFO {
		last := len(p.queue) - 1
		t = p.queue[last]
		p.queue = p.queue[:last]
	} else {
		t = p.queue[0]
		p.queue = p.queue[1:]
	}
	return t
}

func run(job Job) Result {
	switch job.Action {
	case ActionEncrypt:
		ciphertext, nonce, err := cryptox.EncryptRecord(job.Record, job.Key)
		return Result{Ciphertext: ciphertext, Nonce: nonce, Err: err}
	case ActionDecrypt:
		return Result{Err: cryptox.DecryptRecord(job.Ciphertext, job.Nonce, job.Key, job.Out)}
	default:
		return Result{Err: ErrUnknownAction}
	}
}
