package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageIDRoundTrip(t *testing.T) {
	id, err := NewMessageID(PriorityNominal, 1234, Node(42))
	require.NoError(t, err)

	assert.False(t, id.IsServiceNotMessage())
	assert.False(t, id.IsAnonymous())
	assert.Equal(t, PriorityNominal, id.Priority())
	assert.EqualValues(t, 1234, id.Subject())
	assert.EqualValues(t, 42, id.Source())
}

func TestAnonymousMessageID(t *testing.T) {
	id, err := NewMessageID(PriorityOptional, 7, Anonymous.pseudo(99))
	require.NoError(t, err)

	assert.True(t, id.IsAnonymous())
	assert.EqualValues(t, 99, id.Source())
	assert.EqualValues(t, 7, id.Subject())
}

func TestServiceIDRoundTrip(t *testing.T) {
	id, err := NewServiceID(PriorityHigh, true, 300, 10, 20)
	require.NoError(t, err)

	assert.True(t, id.IsServiceNotMessage())
	assert.True(t, id.IsRequestNotResponse())
	assert.Equal(t, PriorityHigh, id.Priority())
	assert.EqualValues(t, 300, id.Service())
	assert.EqualValues(t, 10, id.Destination())
	assert.EqualValues(t, 20, id.Source())
}

func TestResponseIDRoundTrip(t *testing.T) {
	id, err := NewServiceID(PriorityLow, false, 1, 20, 10)
	require.NoError(t, err)

	assert.False(t, id.IsRequestNotResponse())
	assert.EqualValues(t, 20, id.Destination())
	assert.EqualValues(t, 10, id.Source())
}

func TestLowerPriorityNumberArbitratesFirst(t *testing.T) {
	high, _ := NewMessageID(PriorityExceptional, 0, Node(0))
	low, _ := NewMessageID(PriorityOptional, 0, Node(0))
	assert.Less(t, uint32(high), uint32(low))
}

func TestInvalidFieldsRejected(t *testing.T) {
	_, err := NewMessageID(PriorityNominal, MaxSubjectID+1, Node(0))
	assert.ErrorIs(t, err, ErrInvalidSubjectID)

	_, err = NewMessageID(Priority(8), 0, Node(0))
	assert.ErrorIs(t, err, ErrInvalidPriority)

	_, err = NewMessageID(PriorityNominal, 0, Node(MaxNodeID+1))
	assert.ErrorIs(t, err, ErrInvalidNodeID)

	_, err = NewServiceID(PriorityNominal, true, MaxServiceID+1, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidServiceID)

	_, err = NewServiceID(PriorityNominal, true, 0, MaxNodeID+1, 0)
	assert.ErrorIs(t, err, ErrInvalidNodeID)
}

func TestTransferIDWraps(t *testing.T) {
	var id TransferID = 31
	assert.EqualValues(t, 0, id.Next())
}

// pseudo returns an anonymous OptionalNodeID whose pseudo-id (used only for
// CAN-level arbitration) is pseudoID; test helper only, anonymous messages
// in real use pick pseudoID at random.
func (OptionalNodeID) pseudo(pseudoID NodeID) OptionalNodeID {
	o := Anonymous
	o.id = pseudoID
	return o
}
