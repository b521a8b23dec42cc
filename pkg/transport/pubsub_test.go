package transport

import (
	"testing"

	"github.com/samsamfire/gouavcan/pkg/frame"
	"github.com/samsamfire/gouavcan/pkg/instant"
	"github.com/samsamfire/gouavcan/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drainAll(q *queue.Queue, now instant.Instant) []frame.Frame {
	var out []frame.Frame
	for {
		f, ok := q.Pop(now)
		if !ok {
			break
		}
		out = append(out, f)
	}
	return out
}

func TestPublisherEndToEndThroughReceiver(t *testing.T) {
	pub := NewPublisher(frame.PriorityNominal, 100, frame.Node(7), Classic, 1000)
	q := queue.New(16)

	_, err := pub.Publish(ts(0), []byte{1, 2, 3}, q)
	require.NoError(t, err)
	_, err = pub.Publish(ts(0), []byte{4, 5, 6}, q)
	require.NoError(t, err)

	r := NewReceiver()
	sub := NewSubscription(1000, 0)
	r.Subscribe(PortMessage, 100, sub)

	var got [][]byte
	for _, f := range drainAll(q, ts(0)) {
		transfer, _, _, ok, err := r.Accept(ts(0), f, frame.Anonymous)
		require.NoError(t, err)
		if ok {
			got = append(got, transfer.Payload)
		}
	}

	require.Len(t, got, 2)
	assert.Equal(t, []byte{1, 2, 3}, got[0])
	assert.Equal(t, []byte{4, 5, 6}, got[1])
}

func TestPublishFailsAtomicallyWhenQueueLacksRoomForWholeTransfer(t *testing.T) {
	pub := NewPublisher(frame.PriorityNominal, 100, frame.Node(7), Classic, 1000)
	// Classic MTU splits a 20-byte payload into several frames; a queue
	// with room for only one must reject the whole transfer rather than
	// admit a truncated prefix.
	q := queue.New(1)
	payload := make([]byte, 20)

	_, err := pub.Publish(ts(0), payload, q)
	assert.ErrorIs(t, err, queue.ErrOutOfMemory)
	assert.Equal(t, 0, q.Len(), "a transfer that doesn't fully fit must enqueue nothing")
}

func TestRequesterResponderRoundTrip(t *testing.T) {
	req := NewRequester(frame.PriorityNominal, 9, frame.NodeID(1), Classic, 1000)
	q := queue.New(16)

	transferID, _, err := req.Request(ts(0), frame.NodeID(2), []byte{0xAA}, q)
	require.NoError(t, err)

	serverReceiver := NewReceiver()
	serverSub := NewSubscription(1000, 0)
	serverReceiver.Subscribe(PortRequest, 9, serverSub)

	frames := drainAll(q, ts(0))
	require.Len(t, frames, 1)

	var reqTransfer Transfer
	var reqHeader ServiceHeader
	for _, f := range frames {
		transfer, _, _, ok, err := serverReceiver.Accept(ts(0), f, frame.NodeID(2))
		require.NoError(t, err)
		if ok {
			reqTransfer = transfer
			reqHeader = ServiceHeader{
				Priority: f.ID.Priority(),
				Service:  f.ID.Service(),
				Source:   f.ID.Source(),
				Request:  true,
			}
		}
	}
	require.Equal(t, transferID, reqTransfer.TransferID)
	require.Equal(t, []byte{0xAA}, reqTransfer.Payload)

	resp := NewResponder(frame.NodeID(2), Classic, 1000)
	_, err = resp.Respond(ts(0), reqHeader, reqTransfer.TransferID, []byte{0xBB}, q)
	require.NoError(t, err)

	clientReceiver := NewReceiver()
	clientSub := NewSubscription(1000, 0)
	clientReceiver.Subscribe(PortResponse, 9, clientSub)

	respFrames := drainAll(q, ts(0))
	require.Len(t, respFrames, 1)

	var respTransfer Transfer
	var completed bool
	for _, f := range respFrames {
		transfer, _, _, ok, err := clientReceiver.Accept(ts(0), f, frame.NodeID(1))
		require.NoError(t, err)
		if ok {
			respTransfer = transfer
			completed = true
		}
	}
	require.True(t, completed)
	assert.Equal(t, transferID, respTransfer.TransferID)
	assert.Equal(t, []byte{0xBB}, respTransfer.Payload)
}
