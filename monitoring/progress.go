package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar tracks how many items of a run are finished or in progress.
type ProgressBar struct {
	lock sync.Mutex

	id         string
	name       string
	startTime  time.Time
	total      uint64
	finished   uint64
	inProgress uint64
}

type progressSnapshot struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

func newProgressBar(id, name string, total uint64) *ProgressBar {
	return &ProgressBar{
		id:        id,
		name:      name,
		startTime: time.Now(),
		total:     total,
	}
}

// Name returns the name of the bar.
func (b *ProgressBar) Name() string {
	return b.name
}

// IncrementInProgress adds items that have started.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.inProgress += amount
}

// IncrementFinished adds items that are done without being in progress.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.finished += amount
}

// MoveInProgressToFinished marks started items as done.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if amount > b.inProgress {
		amount = b.inProgress
	}

	b.inProgress -= amount
	b.finished += amount
}

// Finished returns the number of finished items.
func (b *ProgressBar) Finished() uint64 {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.finished
}

func (b *ProgressBar) snapshot() progressSnapshot {
	b.lock.Lock()
	defer b.lock.Unlock()

	return progressSnapshot{
		ID:         b.id,
		Name:       b.name,
		StartTime:  b.startTime,
		Total:      b.total,
		Finished:   b.finished,
		InProgress: b.inProgress,
	}
}
