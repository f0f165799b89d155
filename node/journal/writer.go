// Copyright 2026 The ocppnode Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package journal

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/gridlink/ocppnode/pkg/log"
)

const (
	// DefaultQueueSize is the number of entries buffered for the background
	// writer before new entries are dropped.
	DefaultQueueSize = 1024
	maxBatch         = 64
)

// item is either an entry to persist or a flush marker.
type item struct {
	entry Entry
	flush chan struct{}
}

// writer persists entries in the background so that recording never blocks
// the forwarding of a request.
type writer struct {
	j       *Journal
	queue   chan item
	done    chan struct{}
	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

func newWriter(j *Journal, size int) *writer {
	w := &writer{
		j:     j,
		queue: make(chan item, size),
		done:  make(chan struct{}),
	}
	go func() {
		defer log.HandlePanic()
		defer close(w.done)
		w.run()
	}()
	return w
}

// enqueue hands e to the background writer. It never blocks, an entry that
// does not fit into the queue is dropped and counted.
func (w *writer) enqueue(e Entry) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.dropped.Add(1)
		return false
	}
	select {
	case w.queue <- item{entry: e}:
		return true
	default:
		if w.dropped.Add(1) == 1 {
			log.Info("Journal queue full, dropping entries", "queue_size", cap(w.queue))
		}
		return false
	}
}

// flush blocks until all entries enqueued before the call are written or ctx
// is done.
func (w *writer) flush(ctx context.Context) error {
	marker := make(chan struct{})
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return nil
	}
	select {
	case w.queue <- item{flush: marker}:
		w.mu.RUnlock()
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}
	select {
	case <-marker:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting entries and waits until the queue is drained.
func (w *writer) close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
}

func (w *writer) run() {
	batch := make([]Entry, 0, maxBatch)
	var markers []chan struct{}
	for it := range w.queue {
		batch, markers = collect(batch[:0], markers[:0], it)
	drain:
		for len(batch) < maxBatch {
			select {
			case next, ok := <-w.queue:
				if !ok {
					break drain
				}
				batch, markers = collect(batch, markers, next)
			default:
				break drain
			}
		}
		w.write(batch)
		for _, m := range markers {
			close(m)
		}
	}
}

func collect(batch []Entry, markers []chan struct{}, it item) ([]Entry, []chan struct{}) {
	if it.flush != nil {
		return batch, append(markers, it.flush)
	}
	return append(batch, it.entry), markers
}

func (w *writer) write(batch []Entry) {
	if len(batch) == 0 {
		return
	}
	if err := w.j.insertBatch(context.Background(), batch); err != nil {
		log.Error("Failed to write journal entries", "entries", len(batch), "err", err)
	}
}
