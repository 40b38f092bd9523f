package api

import (
	"sync"

	"github.com/shiftwise/payroll-engine/payroll"
)

// ProfileRegistry is the in-process Profile collaborator: per-owner
// cadence, reference date, and base rate. Owners without an explicit
// profile fall back to weekly cadence with no rate configured.
type ProfileRegistry struct {
	mu       sync.RWMutex
	profiles map[string]payroll.Profile
}

func NewProfileRegistry() *ProfileRegistry {
	return &ProfileRegistry{profiles: make(map[string]payroll.Profile)}
}

func (r *ProfileRegistry) Put(p payroll.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.OwnerID] = p
}

// Get returns the owner's profile, or the weekly default.
func (r *ProfileRegistry) Get(ownerID string) payroll.Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.profiles[ownerID]; ok {
		return p
	}
	return payroll.Profile{OwnerID: ownerID, Cadence: payroll.CadenceWeekly}
}
