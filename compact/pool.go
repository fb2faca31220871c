// Package compact implements a generic two-phase parallel stream
// compactor over particle tiles: an exact parallel count of predicate
// matches, a grow-by-exactly-count reservation on the destination, and a
// stable append in which each worker writes a disjoint pre-reserved range.
package compact

import (
	"runtime"
	"sync"
)

// parallelThreshold is the minimum particle count to use the worker pool.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 64

// span is a half-open index range handled by one worker, with the slot
// identifying its chunk across both phases.
type span struct {
	start, end int
	slot       int
}

// pool runs phase functions over chunked index ranges on persistent
// workers. The same chunking is reused for the count and append phases of
// one compaction, so per-chunk counts line up with per-chunk offsets.
type pool struct {
	numWorkers int

	workChan chan span
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool

	mu sync.Mutex
	fn func(start, end, slot int)
}

func newPool(workers int) *pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &pool{numWorkers: workers}
}

func (p *pool) start() {
	if p.running {
		return
	}
	p.workChan = make(chan span, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *pool) stop() {
	if !p.running {
		return
	}
	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			return
		case s, ok := <-p.workChan:
			if !ok {
				return
			}
			p.fn(s.start, s.end, s.slot)
			p.doneChan <- struct{}{}
		}
	}
}

// chunks returns the fixed chunk boundaries for n elements. Both phases of
// a compaction must see identical boundaries.
func (p *pool) chunks(n int) []span {
	chunkSize := (n + p.numWorkers - 1) / p.numWorkers
	out := make([]span, 0, p.numWorkers)
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		out = append(out, span{start: start, end: end, slot: len(out)})
	}
	return out
}

// run executes fn over the given chunks and blocks until all complete.
// Small inputs run inline on the calling goroutine.
func (p *pool) run(n int, spans []span, fn func(start, end, slot int)) {
	if n < parallelThreshold {
		for _, s := range spans {
			fn(s.start, s.end, s.slot)
		}
		return
	}
	if !p.running {
		p.start()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fn = fn
	for _, s := range spans {
		p.workChan <- s
	}
	for range spans {
		<-p.doneChan
	}
}
