package transport

import (
	"testing"

	"github.com/samsamfire/gouavcan/pkg/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiverDispatchesMessageToSubscribedSubject(t *testing.T) {
	r := NewReceiver()
	sub := NewSubscription(1000, 0)
	r.Subscribe(PortMessage, 42, sub)

	id, _ := frame.NewMessageID(frame.PriorityNominal, 42, frame.Node(7))
	transfer, kind, portID, ok, err := r.Accept(ts(0), singleFrame(id, 1, []byte{9}), frame.Node(1))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PortMessage, kind)
	assert.EqualValues(t, 42, portID)
	assert.Equal(t, []byte{9}, transfer.Payload)
}

func TestReceiverIgnoresUnsubscribedSubject(t *testing.T) {
	r := NewReceiver()
	id, _ := frame.NewMessageID(frame.PriorityNominal, 42, frame.Node(7))
	_, _, _, ok, err := r.Accept(ts(0), singleFrame(id, 1, []byte{9}), frame.Node(1))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestReceiverSeparatesRequestAndResponsePorts(t *testing.T) {
	r := NewReceiver()
	reqSub := NewSubscription(1000, 0)
	respSub := NewSubscription(1000, 0)
	r.Subscribe(PortRequest, 5, reqSub)
	r.Subscribe(PortResponse, 5, respSub)

	reqID, _ := frame.NewServiceID(frame.PriorityNominal, true, 5, 1, 7)
	_, kind, _, ok, err := r.Accept(ts(0), singleFrame(reqID, 1, []byte{1}), frame.Node(1))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PortRequest, kind)

	respID, _ := frame.NewServiceID(frame.PriorityNominal, false, 5, 1, 7)
	_, kind, _, ok, err = r.Accept(ts(0), singleFrame(respID, 1, []byte{1}), frame.Node(1))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PortResponse, kind)
}

func TestReceiverIgnoresServiceFramesNotAddressedToSelf(t *testing.T) {
	r := NewReceiver()
	r.Subscribe(PortRequest, 5, NewSubscription(1000, 0))

	reqID, _ := frame.NewServiceID(frame.PriorityNominal, true, 5, 2, 7)
	_, _, _, ok, err := r.Accept(ts(0), singleFrame(reqID, 1, []byte{1}), frame.Node(1))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestReceiverAnonymousNodeNeverMatchesServiceFrames(t *testing.T) {
	r := NewReceiver()
	r.Subscribe(PortRequest, 5, NewSubscription(1000, 0))

	reqID, _ := frame.NewServiceID(frame.PriorityNominal, true, 5, 1, 7)
	_, _, _, ok, err := r.Accept(ts(0), singleFrame(reqID, 1, []byte{1}), frame.Anonymous)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestSubscriptionEvictsLeastRecentlyUsedSessionAtCapacity(t *testing.T) {
	sub := NewSubscription(1000, 2)

	// Three distinct sources on the same subject.
	srcA, _ := frame.NewMessageID(frame.PriorityNominal, 1, frame.Node(1))
	srcB, _ := frame.NewMessageID(frame.PriorityNominal, 1, frame.Node(2))
	srcC, _ := frame.NewMessageID(frame.PriorityNominal, 1, frame.Node(3))

	_, _, _ = sub.Accept(ts(0), singleFrame(srcA, 1, []byte{1})) // creates session A
	_, _, _ = sub.Accept(ts(0), singleFrame(srcB, 1, []byte{1})) // creates session B, at capacity
	_, _, _ = sub.Accept(ts(0), singleFrame(srcC, 1, []byte{1})) // evicts A, creates C

	assert.Len(t, sub.sessions, 2)
	_, stillTrackingA := sub.sessions[frame.NodeID(1)]
	assert.False(t, stillTrackingA)
}
