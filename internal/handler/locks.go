package handler

import "sync"

// lockTable hands out one mutex per wizard id so payment transitions
// for the same wizard run strictly one at a time within this process:
// two simultaneous confirms must never both reach the processor.  The
// session store's version check covers the cross-process case.  The
// zero value is ready to use.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// acquire locks the mutex for id and returns its unlock function.
// Entries are a mutex each and are keyed by short-lived wizard ids, so
// the table is not reaped.
func (t *lockTable) acquire(id string) func() {
	t.mu.Lock()
	if t.locks == nil {
		t.locks = map[string]*sync.Mutex{}
	}
	l, ok := t.locks[id]
	if !ok {
		l = &sync.Mutex{}
		t.locks[id] = l
	}
	t.mu.Unlock()
	l.Lock()
	return l.Unlock
}
