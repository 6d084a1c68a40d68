package pager

import (
	"sync"

	"github.com/google/uuid"
)

// ExclusiveAccess grants one owner at a time exclusive use of a Pager,
// matching the rule that a transaction holds the process-level lock for
// its entire lifetime: prepared statements run outside a transaction
// acquire and release per call, while a transaction's Begin/Commit/Abort
// brackets a single long-lived acquisition.
type ExclusiveAccess struct {
	cond    *sync.Cond
	ownerID uuid.UUID
	held    bool
	pager   *Pager
}

// NewExclusiveAccess wraps p so callers coordinate access to it by owner id.
func NewExclusiveAccess(p *Pager) *ExclusiveAccess {
	return &ExclusiveAccess{
		pager: p,
		cond:  sync.NewCond(&sync.Mutex{}),
	}
}

// Acquire blocks until id either already owns the pager or no one does,
// then grants ownership at the requested mode. Reentrant: an id that
// already owns the pager may re-acquire at a different mode without
// releasing first.
func (p *ExclusiveAccess) Acquire(id uuid.UUID, mode Mode) *Pager {
	p.cond.L.Lock()
	defer p.cond.L.Unlock()

	if p.held && p.ownerID == id {
		p.pager.SetMode(mode)
		return p.pager
	}

	for p.held {
		p.cond.Wait()
	}

	p.held = true
	p.ownerID = id
	p.pager.SetMode(mode)
	return p.pager
}

// Release gives up id's ownership, if it is the current owner, and resets
// the pager to ModeRead before waking the next waiter.
func (p *ExclusiveAccess) Release(id uuid.UUID) {
	p.cond.L.Lock()
	defer p.cond.L.Unlock()
	if !p.held || p.ownerID != id {
		return
	}
	p.held = false
	p.ownerID = uuid.UUID{}
	p.pager.SetMode(ModeRead)
	p.cond.Signal()
}
