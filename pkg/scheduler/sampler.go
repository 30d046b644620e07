package scheduler

import (
	"context"
	"fmt"

	"github.com/preligens-lab/buzzard/pkg/actorbus"
	"github.com/preligens-lab/buzzard/pkg/cache"
	"github.com/preligens-lab/buzzard/pkg/compute"
	"github.com/preligens-lab/buzzard/pkg/workerpool"
)

// Sampler reads VALID cache tiles for a production array, pooled, spec
// §4.11: "fronted by an actor that owns a waiting room of pending requests
// and a pool... dispatches requests to the pool in FIFO order". Requests
// here are dispatched immediately since Builder only calls sample() once
// CacheHandler has already confirmed every tile is readable; the "waiting
// room" discipline lives in Producer/CacheHandler instead.
type Sampler struct {
	loop     *actorbus.Loop
	rasterID string
	store    cache.Store
	channels []string
	pool     workerpool.Pool

	requests map[string]*sampleRequest
	inFlight []sampleFuture
}

type sampleRequest struct {
	queryID   string
	id        arrayID
	results   []compute.Array
	remaining int
	err       *Error
}

type sampleFuture struct {
	reqKey string
	idx    int
	future workerpool.Future
}

func requestKey(queryID string, id arrayID) string {
	return fmt.Sprintf("%s|%d|%d", queryID, id.col, id.row)
}

func NewSampler(loop *actorbus.Loop, rasterID string, store cache.Store, channels []string, pool workerpool.Pool) *Sampler {
	s := &Sampler{loop: loop, rasterID: rasterID, store: store, channels: channels, pool: pool, requests: make(map[string]*sampleRequest)}
	loop.Register(key(rasterID, roleSampler), s)
	loop.AddPoller(actorbus.PollerFunc(s.poll))
	return s
}

func (s *Sampler) Handle(msg actorbus.Message) {
	switch msg.Type {
	case msgSample:
		s.handleSample(msg.Payload.(samplePayload))
	case msgKillRaster:
		s.loop.Unregister(key(s.rasterID, roleSampler))
	}
}

func (s *Sampler) handleSample(p samplePayload) {
	rk := requestKey(p.queryID, p.id)
	req := &sampleRequest{queryID: p.queryID, id: p.id, results: make([]compute.Array, len(p.tiles)), remaining: len(p.tiles)}
	s.requests[rk] = req

	for i, t := range p.tiles {
		idx, tile := i, t
		f := s.pool.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
			buf, err := s.store.Read(ctx, tile)
			if err != nil {
				return nil, err
			}
			return compute.Decode(buf, s.channels)
		})
		s.inFlight = append(s.inFlight, sampleFuture{reqKey: rk, idx: idx, future: f})
	}
}

func (s *Sampler) poll() {
	remaining := s.inFlight[:0]
	for _, sf := range s.inFlight {
		select {
		case <-sf.future.Done():
		default:
			remaining = append(remaining, sf)
			continue
		}
		req, ok := s.requests[sf.reqKey]
		if !ok {
			continue
		}
		val, err := sf.future.Result()
		if err != nil && req.err == nil {
			req.err = &Error{Kind: KindIOError, QueryID: req.queryID, Err: err}
		} else if err == nil {
			req.results[sf.idx] = val.(compute.Array)
		}
		req.remaining--
		if req.remaining == 0 {
			delete(s.requests, sf.reqKey)
			s.loop.Emit(actorbus.Message{
				To:   key(s.rasterID, roleBuilder),
				Type: msgSampled,
				Payload: sampledPayload{
					queryID: req.queryID,
					id:      req.id,
					arrays:  req.results,
					err:     req.err,
				},
			})
		}
	}
	s.inFlight = remaining
}
