package frame

import (
	"testing"

	"github.com/kvsd/kvsd/internal/kvserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSample() *MessageFrames {
	b := NewBuilder(5, 2)
	b.PushString("key1")
	b.PushBytes([]byte("value1"))
	return b.Build()
}

func TestEncodeParse_RoundTrip(t *testing.T) {
	mf := buildSample()
	wire := Encode(mf, nil)

	n, err := CheckParse(wire)
	require.NoError(t, err)
	assert.Equal(t, len(wire), n)

	consumed, decoded, err := Parse(wire)
	require.NoError(t, err)
	assert.Equal(t, len(wire), consumed)
	assert.Equal(t, byte(5), decoded.MessageType())
	require.Len(t, decoded.Payload(), 2)
	assert.Equal(t, "key1", decoded.Payload()[0].Str)
	assert.Equal(t, []byte("value1"), decoded.Payload()[1].Bytes)
}

func TestEncodeParse_NullAndTimeFrames(t *testing.T) {
	b := NewBuilder(1, 2)
	b.PushTime("2024-01-01T00:00:00Z")
	b.PushNull()
	mf := b.Build()

	wire := Encode(mf, nil)
	_, decoded, err := Parse(wire)
	require.NoError(t, err)
	assert.Equal(t, KindTime, decoded.Payload()[0].Kind)
	assert.Equal(t, "2024-01-01T00:00:00Z", decoded.Payload()[0].Str)
	assert.Equal(t, KindNull, decoded.Payload()[1].Kind)
}

func TestCheckParse_IncompleteDoesNotPanic(t *testing.T) {
	mf := buildSample()
	wire := Encode(mf, nil)

	for end := 0; end < len(wire); end++ {
		_, err := CheckParse(wire[:end])
		assert.ErrorIs(t, err, kvserr.ErrIncomplete, "prefix length %d should be incomplete", end)
	}
}

func TestParse_MultipleMessagesInBuffer(t *testing.T) {
	mf1 := buildSample()
	mf2 := buildSample()
	wire := append(Encode(mf1, nil), Encode(mf2, nil)...)

	n1, err := CheckParse(wire)
	require.NoError(t, err)

	consumed1, _, err := Parse(wire[:n1])
	require.NoError(t, err)
	assert.Equal(t, n1, consumed1)

	n2, err := CheckParse(wire[n1:])
	require.NoError(t, err)
	assert.Equal(t, len(wire)-n1, n2)
}

func TestParse_BadPrefixIsInvalid(t *testing.T) {
	_, err := CheckParse([]byte("not-a-frame"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, kvserr.ErrIncomplete)
}
