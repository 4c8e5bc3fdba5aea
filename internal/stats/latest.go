package stats

import "sync"

// LatestView is the single shared holder of the most recent derived
// view. Each snapshot fully replaces the previous one; there is no
// merging across snapshots.
type LatestView struct {
	mu   sync.RWMutex
	view View
	set  bool
}

func NewLatestView() *LatestView { return &LatestView{} }

func (l *LatestView) Set(v View) {
	l.mu.Lock()
	l.view = v
	l.set = true
	l.mu.Unlock()
}

// Get returns the latest view and whether any snapshot has been
// reduced yet.
func (l *LatestView) Get() (View, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.view, l.set
}
