package sim

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// progressInterval is the minimum spacing between two progress lines.
const progressInterval = time.Second

// progress counts finished trials and logs the count at most once per
// progressInterval, plus once when the last trial finishes. Safe for
// concurrent use by trial workers.
type progress struct {
	total   int64
	done    atomic.Int64
	limiter *rate.Limiter
	start   time.Time
}

func newProgress(total int) *progress {
	return &progress{
		total:   int64(total),
		limiter: rate.NewLimiter(rate.Every(progressInterval), 1),
		start:   time.Now(),
	}
}

func (p *progress) trialDone() {
	n := p.done.Add(1)
	if n == p.total || p.limiter.Allow() {
		logrus.Infof("completed %d/%d trials (%s)", n, p.total, time.Since(p.start).Round(time.Millisecond))
	}
}

// completed returns the number of finished trials.
func (p *progress) completed() int64 {
	return p.done.Load()
}
