// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package checkpoint

import (
	"container/heap"
	"sync"

	"go.uber.org/zap"
)

// Manager tracks the log index a watcher resumes from. Logs may finish out
// of order; the checkpoint only advances over a contiguous run of finished
// indices.
type Manager struct {
	logger    *zap.Logger
	name      string
	committed int
	lock      sync.Mutex
	pending   *intHeap
}

// NewManager returns a manager whose first unfinished index is start
func NewManager(logger *zap.Logger, name string, start int) *Manager {
	h := &intHeap{}
	heap.Init(h)
	logger.Info(
		"Creating checkpoint manager",
		zap.String("watcher", name),
		zap.Int("startIndex", start),
	)
	return &Manager{
		logger:    logger,
		name:      name,
		committed: start,
		pending:   h,
	}
}

// Committed returns the first log index not yet finished. Every index below
// it has been staged.
func (cm *Manager) Committed() int {
	cm.lock.Lock()
	defer cm.lock.Unlock()
	return cm.committed
}

// Stage marks index as finished. Indices are committed in sequence, so an
// index past the checkpoint is kept in memory until the gap closes.
func (cm *Manager) Stage(index int) {
	cm.lock.Lock()
	defer cm.lock.Unlock()
	if index < cm.committed {
		cm.logger.Debug(
			"Attempting to stage an index below the checkpoint. Skipping.",
			zap.Int("index", index),
			zap.Int("committed", cm.committed),
			zap.String("watcher", cm.name),
		)
		return
	}

	heap.Push(cm.pending, index)
	for cm.pending.Len() > 0 && (*cm.pending)[0] <= cm.committed {
		if heap.Pop(cm.pending).(int) == cm.committed {
			cm.committed++
		}
	}
	cm.logger.Debug(
		"Staged index",
		zap.Int("index", index),
		zap.Int("committed", cm.committed),
		zap.Int("pending", cm.pending.Len()),
		zap.String("watcher", cm.name),
	)
}

type intHeap []int

func (h intHeap) Len() int           { return len(h) }
func (h intHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *intHeap) Push(x any) {
	*h = append(*h, x.(int))
}

func (h *intHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
