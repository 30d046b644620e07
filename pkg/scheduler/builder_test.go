package scheduler

import (
	"bytes"
	"testing"

	"github.com/preligens-lab/buzzard/pkg/actorbus"
	"github.com/preligens-lab/buzzard/pkg/compute"
	"github.com/preligens-lab/buzzard/pkg/footprint"
)

func TestBuilderHandleBuildEmitsSample(t *testing.T) {
	loop := actorbus.NewLoop(nil)
	NewBuilder(loop, "r1", footprint.Transform{ScaleX: 1, ScaleY: 1})
	var toSampler []actorbus.Message
	captureActor(loop, key("r1", roleSampler), &toSampler)

	aid := arrayID{queryID: "q1"}
	loop.Deliver(actorbus.Message{
		To:      key("r1", roleBuilder),
		Type:    msgBuild,
		Payload: buildPayload{queryID: "q1", id: aid},
	})

	if len(toSampler) != 1 || toSampler[0].Type != msgSample {
		t.Fatalf("expected one sample message, got %v", toSampler)
	}
}

func TestBuilderAxisAlignedSkipsResamplerAndBuildsDirectly(t *testing.T) {
	loop := actorbus.NewLoop(nil)
	NewBuilder(loop, "r1", footprint.Transform{ScaleX: 1, ScaleY: 1}) // axis-aligned
	var toProducer []actorbus.Message
	captureActor(loop, key("r1", roleProducer), &toProducer)
	var toResampler []actorbus.Message
	captureActor(loop, key("r1", roleResampler), &toResampler)

	aid := arrayID{queryID: "q1"}
	arr := compute.Array{Channels: []string{"a"}, Width: 1, Height: 1, Data: [][]byte{{5}}}
	loop.Deliver(actorbus.Message{
		To:      key("r1", roleBuilder),
		Type:    msgSampled,
		Payload: sampledPayload{queryID: "q1", id: aid, arrays: []compute.Array{arr}},
	})

	if len(toResampler) != 0 {
		t.Fatalf("axis-aligned transform should never route through Resampler, got %v", toResampler)
	}
	if len(toProducer) != 1 || toProducer[0].Type != msgBuilt {
		t.Fatalf("expected built emitted directly to Producer, got %v", toProducer)
	}
	data := toProducer[0].Payload.(builtPayload).data
	if !bytes.Equal(data.Data[0], []byte{5}) {
		t.Fatalf("built data = %v, want %v", data.Data[0], []byte{5})
	}
}

func TestBuilderShearedTransformRoutesThroughResampler(t *testing.T) {
	loop := actorbus.NewLoop(nil)
	NewBuilder(loop, "r1", footprint.Transform{ScaleX: 1, ScaleY: 1, ShearX: 0.5})
	var toProducer []actorbus.Message
	captureActor(loop, key("r1", roleProducer), &toProducer)
	var toResampler []actorbus.Message
	captureActor(loop, key("r1", roleResampler), &toResampler)

	aid := arrayID{queryID: "q1"}
	loop.Deliver(actorbus.Message{
		To:      key("r1", roleBuilder),
		Type:    msgSampled,
		Payload: sampledPayload{queryID: "q1", id: aid, arrays: []compute.Array{{}}},
	})

	if len(toProducer) != 0 {
		t.Fatalf("sheared transform must not build directly, got %v", toProducer)
	}
	if len(toResampler) != 1 || toResampler[0].Type != msgResample {
		t.Fatalf("expected resample request, got %v", toResampler)
	}
}

func TestBuilderSampledErrorShortCircuitsToBuilt(t *testing.T) {
	loop := actorbus.NewLoop(nil)
	NewBuilder(loop, "r1", footprint.Transform{ScaleX: 1, ScaleY: 1})
	var toProducer []actorbus.Message
	captureActor(loop, key("r1", roleProducer), &toProducer)

	aid := arrayID{queryID: "q1"}
	sampleErr := &Error{Kind: KindIOError, QueryID: "q1"}
	loop.Deliver(actorbus.Message{
		To:      key("r1", roleBuilder),
		Type:    msgSampled,
		Payload: sampledPayload{queryID: "q1", id: aid, err: sampleErr},
	})

	if len(toProducer) != 1 {
		t.Fatalf("expected one built message on sample error, got %v", toProducer)
	}
	p := toProducer[0].Payload.(builtPayload)
	if p.err != sampleErr {
		t.Fatalf("expected the sample error propagated, got %v", p.err)
	}
}

func TestBuilderHandleResampledForwardsToProducer(t *testing.T) {
	loop := actorbus.NewLoop(nil)
	NewBuilder(loop, "r1", footprint.Transform{ScaleX: 1, ScaleY: 1, ShearX: 0.5})
	var toProducer []actorbus.Message
	captureActor(loop, key("r1", roleProducer), &toProducer)

	aid := arrayID{queryID: "q1"}
	data := compute.Array{Channels: []string{"a"}, Width: 1, Height: 1, Data: [][]byte{{3}}}
	loop.Deliver(actorbus.Message{
		To:      key("r1", roleBuilder),
		Type:    msgResampled,
		Payload: resampledPayload{queryID: "q1", id: aid, data: data},
	})

	if len(toProducer) != 1 || toProducer[0].Type != msgBuilt {
		t.Fatalf("expected built forwarded to Producer, got %v", toProducer)
	}
}
