package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/preligens-lab/buzzard/pkg/actorbus"
	"github.com/prometheus/client_golang/prometheus"
)

// pollInterval is the fallback tick cadence: worker-pool Futures complete
// on their own goroutines with no way to reach back into the loop, so
// Run can't rely solely on Wake to notice them. Polling this often keeps
// spec.md §4.1/§4.2's "on each tick" behavior live even when nothing else
// posts to the mailbox.
const pollInterval = 2 * time.Millisecond

// Scheduler is the public entry point spec §6 describes: register rasters,
// post queries against them, drain results through a QueryHandle. Every
// method here is safe to call from any goroutine; internally each call
// crosses onto the loop goroutine through actorbus.Loop's mailbox
// (RegisterRaster and PostQuery then block on a reply channel), since the
// actor graph itself must only ever be touched from the single goroutine
// running Run.
type Scheduler struct {
	loop    *actorbus.Loop
	rasters *RastersHandler
	metrics *metrics
	log     *logrus.Entry
}

// Option configures a Scheduler at construction time.
type Option func(*config)

type config struct {
	log      *logrus.Entry
	registry prometheus.Registerer
}

// WithLogger overrides the default logrus.StandardLogger entry.
func WithLogger(log *logrus.Entry) Option {
	return func(c *config) { c.log = log }
}

// WithMetricsRegistry registers the scheduler's Prometheus collectors on
// reg instead of a private, unexported registry.
func WithMetricsRegistry(reg prometheus.Registerer) Option {
	return func(c *config) { c.registry = reg }
}

// New constructs a Scheduler. Call Run in its own goroutine before issuing
// any RegisterRaster/PostQuery call; those block waiting for the loop to
// process their request and will hang forever if nothing is driving Run.
func New(opts ...Option) *Scheduler {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logrus.NewEntry(logrus.StandardLogger())
	}
	loop := actorbus.NewLoop(c.log)
	m := newMetrics(c.registry)
	rh := NewRastersHandler(loop, m)
	return &Scheduler{loop: loop, rasters: rh, metrics: m, log: c.log}
}

// Run drives the event loop until ctx is cancelled, waking on every
// PostAsync notification (spec §5's tick cycle: drain mailbox, dispatch
// depth-first, poll) and on a pollInterval fallback ticker. The ticker is
// what lets Poller actors (FileHasher, Computer, Merger, Writer, Sampler,
// Resampler) notice a workerpool.Future that completed on a background
// goroutine: a Future has no way to PostAsync on its own, so without the
// ticker the loop would only ever re-Tick in reaction to unrelated mailbox
// traffic. It never returns until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	s.loop.Tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.loop.Wake():
			s.loop.Tick()
		case <-ticker.C:
			s.loop.Tick()
		}
	}
}

// RegisterRaster adds a raster source to the scheduler and returns its ID
// once the full per-raster actor set (spec §4.1) is live. Blocks until Run
// has processed the request.
func (s *Scheduler) RegisterRaster(spec RasterSpec) (string, error) {
	if spec.ID == "" {
		return "", &Error{Kind: KindConfigError, Err: errEmptyRasterID}
	}
	done := make(chan string, 1)
	s.loop.PostAsync(actorbus.Message{
		To:      key("", roleRastersHandler),
		Type:    msgRegisterRaster,
		Payload: registerRasterPayload{spec: spec, done: done},
	})
	return <-done, nil
}

// CloseRaster marks rasterID for reference-counted teardown (spec §4.1):
// it is torn down once every query still open against it has terminated.
// CloseRaster itself does not block on that teardown completing.
func (s *Scheduler) CloseRaster(rasterID string) {
	s.loop.PostAsync(actorbus.Message{
		To:      key("", roleRastersHandler),
		Type:    msgCloseRaster,
		Payload: closeRasterPayload{rasterID: rasterID},
	})
}

// PostQuery submits a query against a registered raster and returns a
// QueryHandle to drain its results, or a *Error of KindConfigError if the
// query is invalid against the raster (spec §7: "surfaced synchronously at
// post time"). Blocks until Run has planned the query.
func (s *Scheduler) PostQuery(queryID string, spec QuerySpec) (*QueryHandle, error) {
	done := make(chan postQueryResult, 1)
	s.loop.PostAsync(actorbus.Message{
		To:      key("", roleRastersHandler),
		Type:    msgPostQuery,
		Payload: postQueryPayload{queryID: queryID, spec: spec, done: done},
	})
	res := <-done
	if res.err != nil {
		return nil, res.err
	}
	return &QueryHandle{loop: s.loop, rasterID: spec.RasterID, queryID: queryID, out: res.out}, nil
}

type configError string

func (e configError) Error() string { return string(e) }

const errEmptyRasterID = configError("raster spec ID must not be empty")
