package build

import "sync"

// LockTable is a process-wide registry of per-key mutexes. Entries are created on first use
// with an atomic insert-if-absent and never removed, so two callers racing on a new key always
// end up sharing one mutex.
type LockTable struct {
	locks sync.Map // key -> *sync.Mutex
}

// NewLockTable returns an empty table.
func NewLockTable() *LockTable { return &LockTable{} }

// Lock blocks until the lock for key is held and returns its release function.
func (t *LockTable) Lock(key string) (unlock func()) {
	m := t.get(key)
	m.Lock()
	return m.Unlock
}

// TryLock acquires the lock for key without blocking.
func (t *LockTable) TryLock(key string) (unlock func(), ok bool) {
	m := t.get(key)
	if !m.TryLock() {
		return nil, false
	}
	return m.Unlock, true
}

// Len returns the number of keys ever locked.
func (t *LockTable) Len() int {
	n := 0
	t.locks.Range(func(_, _ any) bool { n++; return true })
	return n
}

func (t *LockTable) get(key string) *sync.Mutex {
	if m, ok := t.locks.Load(key); ok {
		return m.(*sync.Mutex)
	}
	m, _ := t.locks.LoadOrStore(key, &sync.Mutex{})
	return m.(*sync.Mutex)
}
