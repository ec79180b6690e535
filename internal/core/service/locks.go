package service

import "sync"

// TenantLocks hands out one mutex per tenant so that lifecycle changes,
// purchases and expiry all serialize against the same tenant while
// different tenants never contend.
type TenantLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewTenantLocks() *TenantLocks {
	return &TenantLocks{locks: make(map[string]*sync.Mutex)}
}

// Get returns the tenant's mutex, creating it on first use. Tenant
// mutexes are never removed; the set of tenants is small and stable.
func (t *TenantLocks) Get(tenant string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	lock, ok := t.locks[tenant]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[tenant] = lock
	}
	return lock
}
