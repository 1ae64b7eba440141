package sim

import "fmt"

// Status is the lifecycle state of a system within a trial.
type Status string

const (
	StatusIdle   Status = "idle"
	StatusBusy   Status = "busy"
	StatusBroken Status = "broken"
)

// SystemState is one queueing channel for the lifetime of a trial.
// It is created Idle and mutated only by the trial's event handlers.
//
// Transitions:
//
//	Idle   -> Busy    startService
//	Busy   -> Idle    completeService
//	Idle   -> Broken  breakDown
//	Busy   -> Broken  breakDown (in-service job returns to the queue front)
//	Broken -> Idle    repair
type SystemState struct {
	ID          int
	Status      Status
	Queue       *JobQueue
	BusyUntil   *float64 // set while Busy
	BrokenUntil *float64 // set while Broken

	inService  *Job
	serviceSeq uint64 // identifies the ServiceComplete event of the current service

	lastUpdate float64
	obs        *SystemResult
}

func newSystemState(id int, obs *SystemResult) *SystemState {
	return &SystemState{
		ID:     id,
		Status: StatusIdle,
		Queue:  &JobQueue{},
		obs:    obs,
	}
}

// advance integrates time-weighted observations up to now.
func (s *SystemState) advance(now float64) {
	dt := now - s.lastUpdate
	if dt <= 0 {
		return
	}
	switch s.Status {
	case StatusBusy:
		s.obs.BusyTime += dt
	case StatusBroken:
		s.obs.Downtime += dt
	}
	s.obs.QueueArea += dt * float64(s.Queue.Len())
	s.lastUpdate = now
}

// startService moves the head job into service. The caller has already
// drawn the service duration and obtained capacity admission.
func (s *SystemState) startService(now, duration float64, seq uint64) *Job {
	if s.Status != StatusIdle {
		panic(fmt.Sprintf("system %d: startService in state %s", s.ID, s.Status))
	}
	job := s.Queue.Dequeue()
	if job == nil {
		panic(fmt.Sprintf("system %d: startService with empty queue", s.ID))
	}
	until := now + duration
	s.Status = StatusBusy
	s.BusyUntil = &until
	s.inService = job
	s.serviceSeq = seq
	return job
}

// completeService finishes the current service. Returns false for a stale
// completion, i.e. one whose service was interrupted by a breakdown.
func (s *SystemState) completeService(seq uint64) bool {
	if s.Status != StatusBusy || seq != s.serviceSeq {
		return false
	}
	s.Status = StatusIdle
	s.BusyUntil = nil
	s.inService = nil
	return true
}

// breakDown moves the system to Broken until repairAt. If a job was in
// service it is returned to the front of the queue and reported as interrupted.
func (s *SystemState) breakDown(repairAt float64) (interrupted *Job) {
	switch s.Status {
	case StatusBroken:
		panic(fmt.Sprintf("system %d: breakdown while broken", s.ID))
	case StatusBusy:
		interrupted = s.inService
		interrupted.Restarts++
		s.Queue.PrependFront(interrupted)
		s.inService = nil
		s.BusyUntil = nil
	}
	s.Status = StatusBroken
	s.BrokenUntil = &repairAt
	return interrupted
}

// repair returns a Broken system to Idle.
func (s *SystemState) repair() {
	if s.Status != StatusBroken {
		panic(fmt.Sprintf("system %d: repair in state %s", s.ID, s.Status))
	}
	s.Status = StatusIdle
	s.BrokenUntil = nil
}

// waiting reports whether the system is Idle with jobs ready to start.
func (s *SystemState) waiting() bool {
	return s.Status == StatusIdle && s.Queue.Len() > 0
}
