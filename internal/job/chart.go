package job

import (
	"context"
	"errors"
	"sync"
	"time"

	"gold-pulse/internal/domain"
	"gold-pulse/internal/service"

	"github.com/rs/zerolog/log"
)

// DefaultChartInterval is the refresh period of a chart instance.
const DefaultChartInterval = 60 * time.Second

// Refresher runs one refresh cycle for a timeframe.
type Refresher interface {
	Refresh(ctx context.Context, tf domain.Timeframe) (*service.RefreshResult, error)
}

// ResultFunc receives every completed cycle. err is set when the cycle
// failed; res is nil in that case.
type ResultFunc func(res *service.RefreshResult, err error)

// Chart drives the refresh cycle of one chart instance. At most one refresh
// is outstanding: timer ticks that land while a refresh runs are dropped.
// Switching timeframe aborts the running refresh and starts a new one
// immediately. Stop cancels everything and waits for the loop to exit.
type Chart struct {
	refresher Refresher
	interval  time.Duration
	onResult  ResultFunc

	mu      sync.RWMutex
	tf      domain.Timeframe
	latest  *service.RefreshResult
	lastErr error

	trigger chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	once    sync.Once
}

// NewChart builds a stopped chart; Start begins the refresh loop.
func NewChart(refresher Refresher, tf domain.Timeframe, interval time.Duration) *Chart {
	if interval <= 0 {
		interval = DefaultChartInterval
	}
	return &Chart{
		refresher: refresher,
		interval:  interval,
		tf:        tf,
		trigger:   make(chan struct{}, 1),
	}
}

// OnResult registers the callback for completed cycles. Call before Start.
func (c *Chart) OnResult(fn ResultFunc) *Chart {
	c.onResult = fn
	return c
}

// Start launches the refresh loop and returns immediately. The first
// refresh runs right away.
func (c *Chart) Start(ctx context.Context) {
	c.once.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		c.cancel = cancel
		c.wg.Add(1)
		go c.loop(ctx)
	})
}

// Stop cancels the loop and any in-flight refresh, then waits for both.
func (c *Chart) Stop() {
	c.once.Do(func() {})
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

// SetTimeframe switches the active timeframe and refreshes on demand.
func (c *Chart) SetTimeframe(tf domain.Timeframe) {
	c.mu.Lock()
	c.tf = tf
	c.mu.Unlock()

	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

func (c *Chart) Timeframe() domain.Timeframe {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tf
}

// Latest returns the most recent completed cycle for the active timeframe.
func (c *Chart) Latest() (*service.RefreshResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest, c.lastErr
}

type outcome struct {
	tf       domain.TimeframeKey
	res      *service.RefreshResult
	err      error
	canceled bool
}

func (c *Chart) loop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	done := make(chan outcome, 1)
	var (
		cancelRun context.CancelFunc
		running   bool
		pending   bool
	)

	start := func() {
		runCtx, cancel := context.WithCancel(ctx)
		cancelRun = cancel
		running = true
		tf := c.Timeframe()
		go func() {
			res, err := c.refresher.Refresh(runCtx, tf)
			done <- outcome{tf: tf.Key, res: res, err: err, canceled: runCtx.Err() != nil}
		}()
	}

	start()
	for {
		select {
		case <-ctx.Done():
			if running {
				cancelRun()
				<-done
			}
			return

		case <-ticker.C:
			if running {
				log.Debug().Str("timeframe", string(c.Timeframe().Key)).Msg("refresh still in flight, skipping tick")
				continue
			}
			start()

		case <-c.trigger:
			if running {
				cancelRun()
				pending = true
				continue
			}
			ticker.Reset(c.interval)
			start()

		case out := <-done:
			running = false
			cancelRun()
			c.publish(out)
			if pending {
				pending = false
				ticker.Reset(c.interval)
				start()
			}
		}
	}
}

func (c *Chart) publish(out outcome) {
	if out.canceled || errors.Is(out.err, context.Canceled) {
		return
	}

	c.mu.Lock()
	if out.tf != c.tf.Key {
		c.mu.Unlock()
		return
	}
	if out.err != nil {
		c.lastErr = out.err
	} else {
		c.latest = out.res
		c.lastErr = nil
	}
	c.mu.Unlock()

	if out.err != nil {
		log.Warn().Err(out.err).Str("timeframe", string(out.tf)).Msg("chart refresh failed")
	}
	if c.onResult != nil {
		c.onResult(out.res, out.err)
	}
}
