package sim

import (
	"runtime"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/drift/components"
)

// particleSnapshot captures one particle for the compute phase.
type particleSnapshot struct {
	Entity   ecs.Entity
	Particle components.Particle
}

// workChunk is a range of snapshots for a worker to advance.
type workChunk struct {
	start, end int
}

// parallelState holds the persistent worker pool for the update pass.
type parallelState struct {
	snapshots  []particleSnapshot
	numWorkers int
	threshold  int

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newParallelState(workers, threshold int) *parallelState {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &parallelState{
		numWorkers: workers,
		threshold:  threshold,
		snapshots:  make([]particleSnapshot, 0, 1024),
	}
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers(s *Simulation) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(s)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *parallelState) worker(s *Simulation) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			s.computeChunk(chunk.start, chunk.end)
			p.doneChan <- struct{}{}
		}
	}
}

// updateParticles advances every particle one step.
//
// Phase A copies the population into snapshots in draw order, phase B advances
// the snapshots (on the pool when the population is large enough) and phase C
// writes them back to the world. Each snapshot reads only the immutable field,
// so the result does not depend on the worker count.
func (s *Simulation) updateParticles() {
	p := s.parallel

	// Phase A: Build snapshots (single-threaded)
	p.snapshots = p.snapshots[:0]
	for _, e := range s.entities {
		pt := s.particleMap.Get(e)
		if pt == nil {
			continue
		}
		p.snapshots = append(p.snapshots, particleSnapshot{Entity: e, Particle: *pt})
	}

	n := len(p.snapshots)
	if n == 0 {
		return
	}

	// Phase B: Compute
	if n < p.threshold || p.numWorkers == 1 {
		s.computeChunk(0, n)
	} else {
		s.computeParallel(n)
	}

	// Phase C: Apply (single-threaded, preserves determinism)
	for i := range p.snapshots {
		snap := &p.snapshots[i]
		if pt := s.particleMap.Get(snap.Entity); pt != nil {
			*pt = snap.Particle
		}
	}
}

// computeParallel dispatches work to the worker pool.
func (s *Simulation) computeParallel(n int) {
	p := s.parallel
	if !p.running {
		p.startWorkers(s)
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	chunksDispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}

		p.workChan <- workChunk{start: start, end: end}
		chunksDispatched++
	}

	for i := 0; i < chunksDispatched; i++ {
		<-p.doneChan
	}
}

// computeChunk advances snapshots [i0, i1).
func (s *Simulation) computeChunk(i0, i1 int) {
	snaps := s.parallel.snapshots
	for i := i0; i < i1; i++ {
		snaps[i].Particle.UpdateDamped(s.field, s.damping)
	}
}
