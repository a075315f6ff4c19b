package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidSourceTract(t *testing.T) {
	_, err := New(1, Tract("bogus"), External, Normal, 0, nil, 0)
	require.Error(t, err)
}

func TestNewRejectsInvalidDestTract(t *testing.T) {
	_, err := New(1, Internal, Tract("bogus"), Normal, 0, nil, 0)
	require.Error(t, err)
}

func TestNewRejectsInvalidPriority(t *testing.T) {
	_, err := New(1, Internal, External, Priority(0), 0, nil, 0)
	require.Error(t, err)
	_, err = New(1, Internal, External, Priority(6), 0, nil, 0)
	require.Error(t, err)
}

func TestNewAcceptsValidFields(t *testing.T) {
	m, err := New(42, Internal, External, High, 1000, "payload", 7)
	require.NoError(t, err)
	assert.EqualValues(t, 42, m.ID())
	assert.Equal(t, Internal, m.Source())
	assert.Equal(t, External, m.Dest())
	assert.Equal(t, High, m.Priority())
	assert.EqualValues(t, 1000, m.TimestampMs())
	assert.Equal(t, "payload", m.Payload())
	assert.Equal(t, 7, m.PayloadSize())
}

func TestSelfAddressedTrueOnlyWhenSourceEqualsDest(t *testing.T) {
	m, err := New(1, Internal, Internal, Normal, 0, nil, 0)
	require.NoError(t, err)
	assert.True(t, m.SelfAddressed())

	m2, err := New(2, Internal, External, Normal, 0, nil, 0)
	require.NoError(t, err)
	assert.False(t, m2.SelfAddressed())
}

func TestPayloadTypeTagReflectsConcreteType(t *testing.T) {
	m, err := New(1, Internal, External, Normal, 0, TaskEnvelope{}, 0)
	require.NoError(t, err)
	assert.Equal(t, "message.TaskEnvelope", m.PayloadTypeTag())
}

func TestPriorityStringRendersSymbolicNames(t *testing.T) {
	assert.Equal(t, "low", Low.String())
	assert.Equal(t, "normal", Normal.String())
	assert.Equal(t, "high", High.String())
	assert.Equal(t, "urgent", Urgent.String())
	assert.Equal(t, "critical", Critical.String())
}
