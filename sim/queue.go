// Implements the JobQueue, which holds the jobs waiting at one system.
// Jobs are enqueued on arrival and re-inserted at the front when a
// breakdown interrupts their service.

package sim

// Job is a unit of work waiting for or receiving service at a system.
type Job struct {
	ArrivalTime float64 // simulated time the job arrived at its system
	Restarts    int     // number of times a breakdown interrupted its service
}

// JobQueue is a FIFO queue of jobs waiting at a single system.
type JobQueue struct {
	queue []*Job
}

// Enqueue adds a job to the back of the queue.
func (q *JobQueue) Enqueue(j *Job) {
	q.queue = append(q.queue, j)
}

// Len returns the number of waiting jobs.
func (q *JobQueue) Len() int {
	return len(q.queue)
}

// Peek returns the job at the front of the queue without removing it.
// Returns nil if the queue is empty.
func (q *JobQueue) Peek() *Job {
	if len(q.queue) == 0 {
		return nil
	}
	return q.queue[0]
}

// PrependFront inserts a job at the front of the queue.
// Used for breakdowns: the interrupted job is served first after repair.
func (q *JobQueue) PrependFront(j *Job) {
	if j == nil {
		panic("PrependFront: job must not be nil")
	}
	q.queue = append([]*Job{j}, q.queue...)
}

// Dequeue removes and returns the job at the front of the queue.
// Returns nil if the queue is empty.
func (q *JobQueue) Dequeue() *Job {
	if len(q.queue) == 0 {
		return nil
	}
	j := q.queue[0]
	q.queue[0] = nil
	q.queue = q.queue[1:]
	return j
}

// ArrivalTimes returns the arrival timestamps of the waiting jobs in queue order.
func (q *JobQueue) ArrivalTimes() []float64 {
	times := make([]float64, len(q.queue))
	for i, j := range q.queue {
		times[i] = j.ArrivalTime
	}
	return times
}
