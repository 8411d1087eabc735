package navigate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gwillem/roverplan/pkg/obstacle"
)

// Controller runs a Sequencer in the background at a fixed tick rate and
// publishes its progress for a display.
type Controller struct {
	seq       *Sequencer
	hz        int
	observers []Observer

	mu      sync.RWMutex
	running bool
	last    Tick
	stateCh chan Tick
	logCh   chan string
	done    chan struct{}
	once    sync.Once
}

// NewController wraps seq. hz is the tick rate; zero or less runs ticks
// back to back. The sequencer's log output is routed to Logs.
func NewController(seq *Sequencer, hz int, observers ...Observer) *Controller {
	c := &Controller{
		seq:       seq,
		hz:        hz,
		observers: observers,
		stateCh:   make(chan Tick, 1),
		logCh:     make(chan string, 10),
		done:      make(chan struct{}),
	}
	seq.SetLogger(c.log)
	return c
}

// States returns a channel that receives the latest tick. Ticks the reader
// is too slow for are dropped.
func (c *Controller) States() <-chan Tick {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Done is closed when the run has ended.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Hz returns the tick rate.
func (c *Controller) Hz() int {
	return c.hz
}

// Sequencer returns the wrapped sequencer.
func (c *Controller) Sequencer() *Sequencer {
	return c.seq
}

// Last returns the most recent tick.
func (c *Controller) Last() Tick {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Inject queues obstacles for the next tick.
func (c *Controller) Inject(obs ...obstacle.Obstacle) error {
	return c.seq.Inject(obs...)
}

// Result returns the run summary and error. It blocks until the run ends.
func (c *Controller) Result() (Result, error) {
	<-c.done
	return c.seq.Result()
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start runs the sequence until it ends or ctx is cancelled and returns the
// error that ended it.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()
	defer c.shutdown()

	var tickC <-chan time.Time
	if c.hz > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(c.hz))
		defer ticker.Stop()
		tickC = ticker.C
	}

	c.log("Navigation started with %d waypoints", len(c.seq.Waypoints()))

	for t := range c.seq.Ticks(ctx) {
		c.step(t)
		if tickC == nil {
			continue
		}
		select {
		case <-ctx.Done():
		case <-tickC:
		}
	}

	res, err := c.seq.Result()
	switch {
	case err != nil:
		c.log("Navigation failed after %d ticks: %v", res.Ticks, err)
	case res.Reached:
		c.log("Goal reached in %d ticks", res.Ticks)
	}
	return err
}

func (c *Controller) step(t Tick) {
	for _, o := range c.observers {
		o.OnTick(t)
	}
	c.mu.Lock()
	c.last = t
	c.mu.Unlock()
	c.sendState(t)
}

func (c *Controller) sendState(t Tick) {
	select {
	case c.stateCh <- t:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- t
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	c.log("Navigation stopped")
	c.once.Do(func() { close(c.done) })
}
