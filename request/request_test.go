package request

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	r, err := New("subscribe", map[string]any{"channel": "a"}, WithMetadata(map[string]string{"origin": "test"}))
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "subscribe", r.Method)
	assert.JSONEq(t, `{"channel":"a"}`, string(r.Params))
	assert.Equal(t, "test", r.Metadata["origin"])
	assert.False(t, r.CreatedAt.IsZero())

	other, err := New("subscribe", nil)
	require.NoError(t, err)
	assert.NotEqual(t, r.ID, other.ID)
	assert.Nil(t, other.Params)

	_, err = New("bad", map[string]any{"fn": func() {}})
	assert.Error(t, err)
}

func TestRequest_JSONSkipsContext(t *testing.T) {
	r, err := New("ping", nil, WithID("p1"), WithContext(make(chan int)))
	require.NoError(t, err)
	data, err := json.Marshal(r)
	require.NoError(t, err)
	var decoded Request
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "p1", decoded.ID)
	assert.Nil(t, decoded.Context)
	assert.Equal(t, State(0), decoded.State())
}

func TestState_String(t *testing.T) {
	var testCases = []struct {
		state  State
		expect string
	}{
		{state: 0, expect: "submitted"},
		{state: StateOf(Observed) | StateOf(WaitingForResponse), expect: "observed|waiting"},
		{state: StateOf(Stored), expect: "stored"},
		{state: Destroyed, expect: "destroyed"},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expect, testCase.state.String())
	}
}
