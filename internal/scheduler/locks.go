package scheduler

import (
	"sync"

	"github.com/google/uuid"
)

// doctorLocks hands out one mutex per doctor, created on demand. Bookings
// for different doctors never contend; bookings for the same doctor
// serialize so the overlap check and the insert are one indivisible step.
type doctorLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newDoctorLocks() *doctorLocks {
	return &doctorLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (d *doctorLocks) forDoctor(id uuid.UUID) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.locks[id]
	if !ok {
		l = &sync.Mutex{}
		d.locks[id] = l
	}
	return l
}
