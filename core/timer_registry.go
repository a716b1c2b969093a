package core

import "escdrive/protocol"

// MaxDMATimers bounds how many distinct timers can drive motors
const MaxDMATimers = 8

// TimerGroup is the state shared by every motor on one timer
type TimerGroup struct {
	Timer   TimerID
	Sources DMASource // OR of the DMA sources of every channel on the timer
	Variant protocol.Variant
}

// TimerRegistry maps timer identities to stable group indexes
type TimerRegistry struct {
	groups [MaxDMATimers]TimerGroup
	count  uint8
}

// GetOrCreate returns the group index for a timer. created is true only for
// the first lookup of that timer.
func (r *TimerRegistry) GetOrCreate(id TimerID) (index uint8, created bool, err error) {
	for i := uint8(0); i < r.count; i++ {
		if r.groups[i].Timer == id {
			return i, false, nil
		}
	}
	if r.count >= MaxDMATimers {
		return 0, false, ErrTimerCapacity
	}
	index = r.count
	r.groups[index] = TimerGroup{Timer: id}
	r.count++
	return index, true, nil
}

// Len returns the number of registered timers
func (r *TimerRegistry) Len() int {
	return int(r.count)
}

// Group returns the group at index, or nil
func (r *TimerRegistry) Group(index uint8) *TimerGroup {
	if index >= r.count {
		return nil
	}
	return &r.groups[index]
}

// dropLast forgets a group that was created by a configuration that then
// failed before touching the timer
func (r *TimerRegistry) dropLast() {
	if r.count > 0 {
		r.count--
		r.groups[r.count] = TimerGroup{}
	}
}
