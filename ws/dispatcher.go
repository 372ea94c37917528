package ws

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/akinalp/huddle/pkg"
	"github.com/akinalp/huddle/pkg/logger"
)

// jobTimeout, tek bir komutun çalışabileceği en uzun süre.
const jobTimeout = 15 * time.Second

// Job, worker pool'da çalışan tek iş.
type Job func(ctx context.Context)

// Dispatcher, mutasyon komutlarını sabit sayıda worker'a dağıtır.
//
// Her iş bir anahtar (conversation veya message ID) ile gelir ve
// fnv(key) % N ile hep aynı worker'a düşer. Böylece aynı konuşmanın komutları
// geliş sırasıyla işlenir, farklı konuşmalar birbirini beklemez.
//
// Kuyruklar sınırlıdır: dolu kuyruk Submit'te pkg.ErrUnavailable döner,
// okuma döngüsü asla bloklanmaz.
type Dispatcher struct {
	queues []chan Job
	ctx    context.Context
	cancel context.CancelFunc
	log    *logger.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher, worker'ları başlatır.
func NewDispatcher(workers, queueSize int, log *logger.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		queues: make([]chan Job, workers),
		ctx:    ctx,
		cancel: cancel,
		log:    log,
	}
	for i := range d.queues {
		d.queues[i] = make(chan Job, queueSize)
		d.wg.Add(1)
		go d.worker(i, d.queues[i])
	}
	return d
}

// Submit, işi anahtarın shard'ına kuyruklar. Bloklamaz.
func (d *Dispatcher) Submit(key string, job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return fmt.Errorf("%w: dispatcher stopped", pkg.ErrUnavailable)
	}

	select {
	case d.queues[d.shard(key)] <- job:
		return nil
	default:
		return fmt.Errorf("%w: command queue full", pkg.ErrUnavailable)
	}
}

// Stop, yeni işleri reddeder, kuyruktaki işlerin bitmesini bekler.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()

	d.wg.Wait()
	d.cancel()
}

func (d *Dispatcher) shard(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.queues)))
}

func (d *Dispatcher) worker(id int, queue <-chan Job) {
	defer d.wg.Done()
	for job := range queue {
		d.run(id, job)
	}
}

func (d *Dispatcher) run(id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("command panicked", zap.Int("worker", id), zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(d.ctx, jobTimeout)
	defer cancel()
	job(ctx)
}
