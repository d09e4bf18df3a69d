// Copyright 2024 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package compactd is the background daemon analogue of kcompactd: one
// worker goroutine per node, woken on demand or on a timer, walking
// that node's zones and running pkg/compaction passes for whichever
// ones look worth compacting. The worker/command-channel shape is
// grounded on pkg/memtier's Mover (see mover.go in the reference
// tree): a buffered command channel plus a busy loop that drains it
// between units of work.
package compactd

import (
	"sync"
	"time"

	logger "github.com/intel/compactcore/pkg/log"
	"github.com/intel/compactcore/pkg/compaction"
	"github.com/intel/compactcore/pkg/zone"
)

var log = logger.NewLogger("compactd")

type workerCmd int

const (
	cmdWake workerCmd = iota
	cmdQuit
)

// Node groups the zones that share one LRU lock, mirroring how the
// kernel keys kcompactd and its wait queue off pg_data_t rather than
// off individual zones.
type Node struct {
	ID    int
	Zones []*zone.Zone
}

// Daemon owns one worker per Node and the collaborator callbacks every
// compaction pass needs (the allocator, migrator and destinations,
// none of which this package implements itself).
type Daemon struct {
	mu      sync.Mutex
	nodes   []*Node
	alloc   compaction.Allocator
	mig     compaction.Migrator
	dst     compaction.Destinations
	cancel  chan struct{}
	workers map[int]chan workerCmd
	wg      sync.WaitGroup
}

// NewDaemon builds a Daemon over nodes, using alloc/mig/dst to satisfy
// every compaction pass's external collaborators.
func NewDaemon(nodes []*Node, alloc compaction.Allocator, mig compaction.Migrator, dst compaction.Destinations) *Daemon {
	return &Daemon{
		nodes:   nodes,
		alloc:   alloc,
		mig:     mig,
		dst:     dst,
		workers: make(map[int]chan workerCmd),
	}
}

// Zones implements compaction.Registry for the Prometheus collector.
func (d *Daemon) Zones() []*zone.Zone {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*zone.Zone
	for _, n := range d.nodes {
		out = append(out, n.Zones...)
	}
	return out
}

// Start launches one worker goroutine per node (kcompactd_run).
func (d *Daemon) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return
	}
	d.cancel = make(chan struct{})
	for _, n := range d.nodes {
		ch := make(chan workerCmd, 1)
		d.workers[n.ID] = ch
		d.wg.Add(1)
		go d.nodeWorker(n, ch)
	}
}

// Stop signals every worker to exit and waits for them (kcompactd_stop).
func (d *Daemon) Stop() {
	d.mu.Lock()
	if d.cancel == nil {
		d.mu.Unlock()
		return
	}
	close(d.cancel)
	for _, ch := range d.workers {
		select {
		case ch <- cmdQuit:
		default:
		}
	}
	d.mu.Unlock()
	d.wg.Wait()

	d.mu.Lock()
	d.cancel = nil
	d.workers = make(map[int]chan workerCmd)
	d.mu.Unlock()
}

// Wake requests an immediate compaction pass on node nodeID, a
// non-blocking signal matching wakeup_kcompactd's semantics: a worker
// already busy just picks the request up on its next idle check.
func (d *Daemon) Wake(nodeID int) {
	d.mu.Lock()
	ch, ok := d.workers[nodeID]
	d.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- cmdWake:
	default:
	}
}

func (d *Daemon) nodeWorker(n *Node, cmds chan workerCmd) {
	defer d.wg.Done()
	log.Debug("node %d: compaction worker online", n.ID)
	defer log.Debug("node %d: compaction worker offline", n.ID)

	for {
		interval, minOrder := opt.get()
		timer := time.NewTimer(interval)
		select {
		case <-d.cancel:
			timer.Stop()
			return
		case cmd := <-cmds:
			timer.Stop()
			if cmd == cmdQuit {
				return
			}
		case <-timer.C:
		}

		res, err := TryToCompactPages(n.Zones, minOrder, d.alloc, d.mig, d.dst, d.cancel)
		if err != nil {
			log.Warn("node %d: proactive compaction pass: %v (result %v)", n.ID, err, res)
		} else {
			log.Debug("node %d: proactive compaction pass: %v", n.ID, res)
		}
	}
}

// CompactAllZones runs one Sync-priority, undeferred compaction pass
// over every zone on every node regardless of the deferral tracker,
// bypassing the daemon's normal backoff policy entirely. This is the
// manual trigger a caller (CLI one-shot mode, an admin endpoint) reaches
// for when it wants compaction to happen now rather than wait its turn.
func (d *Daemon) CompactAllZones(order int) map[string]compaction.Result {
	d.mu.Lock()
	nodes := append([]*Node(nil), d.nodes...)
	d.mu.Unlock()

	results := make(map[string]compaction.Result)
	for _, n := range nodes {
		for _, z := range n.Zones {
			cc := compaction.NewControl(z, order, compaction.Sync, zone.Movable, true)
			results[z.Name] = compaction.CompactZone(cc, d.alloc, d.mig, d.dst)
		}
	}
	return results
}
