package playback

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// progressReportInterval is the minimum spacing between playback
// progress reports sent back to the media server.
const progressReportInterval = 10 * time.Second

// progressReporter forwards device-driven position updates to the
// media server's progress endpoint, throttled so a 1s progress event
// stream does not turn into a 1s report stream.
type progressReporter struct {
	c       *Coordinator
	limiter *rate.Limiter
}

func newProgressReporter(c *Coordinator) *progressReporter {
	return &progressReporter{
		c:       c,
		limiter: rate.NewLimiter(rate.Every(progressReportInterval), 1),
	}
}

func (r *progressReporter) observe(positionSeconds float64, playing bool) {
	report, ok := r.c.currentReport(positionSeconds, !playing)
	if !ok {
		return
	}
	if !r.limiter.Allow() {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.c.server.ReportPlaybackProgress(ctx, report); err != nil {
			r.c.Log().Warn().Err(err).Msg("progress report failed")
		}
	}()
}
