package memtracker

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"mooney-stimuli/internal/logger"
)

type AllocationInfo struct {
	Size        int64
	Tag         string
	AllocatedAt time.Time
	StackTrace  []uintptr
}

type MemoryStats struct {
	TotalAllocated   int64
	TotalDeallocated int64
	CurrentlyActive  int64
	AllocationCount  int64
	LeakCount        int64
}

// Tracker follows native Mat buffers from allocation to release so tests and
// debug runs can spot Mats that were never closed.
type Tracker struct {
	allocations  map[uint64]AllocationInfo
	mu           sync.RWMutex
	log          logger.Logger
	enabled      bool
	stackTraces  bool
	totalAlloc   int64
	totalDealloc int64
	allocCount   int64
	leakCount    int64
}

func NewTracker(log logger.Logger, enableStackTraces bool) *Tracker {
	if log == nil {
		log = logger.Nop()
	}
	return &Tracker{
		allocations: make(map[uint64]AllocationInfo),
		log:         log,
		enabled:     true,
		stackTraces: enableStackTraces,
	}
}

func (mt *Tracker) isEnabled() bool {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	return mt.enabled
}

func (mt *Tracker) TrackAllocation(id uint64, size int64, tag string) {
	if !mt.isEnabled() {
		return
	}

	atomic.AddInt64(&mt.totalAlloc, size)
	atomic.AddInt64(&mt.allocCount, 1)

	info := AllocationInfo{
		Size:        size,
		Tag:         tag,
		AllocatedAt: time.Now(),
	}

	mt.mu.Lock()
	if mt.stackTraces {
		var pcs [32]uintptr
		n := runtime.Callers(3, pcs[:])
		info.StackTrace = pcs[:n]
	}
	mt.allocations[id] = info
	mt.mu.Unlock()
}

// TrackDeallocation counts a release of an id it never saw as a leak-count
// anomaly.
func (mt *Tracker) TrackDeallocation(id uint64, tag string) {
	if !mt.isEnabled() {
		return
	}

	mt.mu.Lock()
	info, exists := mt.allocations[id]
	if exists {
		delete(mt.allocations, id)
		atomic.AddInt64(&mt.totalDealloc, info.Size)
	} else {
		atomic.AddInt64(&mt.leakCount, 1)
	}
	mt.mu.Unlock()

	if !exists {
		mt.log.Warning("MemoryTracker", "untracked Mat released", map[string]interface{}{
			"id":  id,
			"tag": tag,
		})
	}
}

func (mt *Tracker) GetStats() MemoryStats {
	mt.mu.RLock()
	currentlyActive := int64(len(mt.allocations))
	mt.mu.RUnlock()

	return MemoryStats{
		TotalAllocated:   atomic.LoadInt64(&mt.totalAlloc),
		TotalDeallocated: atomic.LoadInt64(&mt.totalDealloc),
		CurrentlyActive:  currentlyActive,
		AllocationCount:  atomic.LoadInt64(&mt.allocCount),
		LeakCount:        atomic.LoadInt64(&mt.leakCount),
	}
}

func (mt *Tracker) SetEnabled(enabled bool) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.enabled = enabled
}

func (mt *Tracker) DetectLeaks(olderThan time.Duration) []AllocationInfo {
	mt.mu.RLock()
	defer mt.mu.RUnlock()

	threshold := time.Now().Add(-olderThan)
	var leaks []AllocationInfo
	for _, info := range mt.allocations {
		if info.AllocatedAt.Before(threshold) {
			leaks = append(leaks, info)
		}
	}
	return leaks
}

func (mt *Tracker) GetAllocationsByTag(tag string) []AllocationInfo {
	mt.mu.RLock()
	defer mt.mu.RUnlock()

	var result []AllocationInfo
	for _, info := range mt.allocations {
		if info.Tag == tag {
			result = append(result, info)
		}
	}
	return result
}
