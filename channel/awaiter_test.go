package channel_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/rpcchannel/channel"
	"github.com/viant/rpcchannel/request"
)

// echoTransport answers every request asynchronously with its own params.
type echoTransport struct {
	mu       sync.Mutex
	silent   bool
	listener channel.Listener
}

func (e *echoTransport) Send(ctx context.Context, r *request.Request) error {
	e.mu.Lock()
	silent, listener := e.silent, e.listener
	e.mu.Unlock()
	if silent || listener == nil {
		return nil
	}
	go listener(context.Background(), &channel.Response{ID: r.ID, Result: r.Params})
	return nil
}

func (e *echoTransport) ResetConnection(ctx context.Context) error { return nil }

func (e *echoTransport) Listen(listener channel.Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = listener
}

func TestAwaiter_Call(t *testing.T) {
	awaiter := channel.NewAwaiter(nil)
	c := channel.New(&echoTransport{}, awaiter)
	defer c.Terminate()

	r, err := request.New("math/add", map[string]int{"a": 1, "b": 2}, request.WithID("call-1"))
	require.NoError(t, err)
	response, err := awaiter.Call(context.Background(), c, r)
	require.NoError(t, err)
	assert.Equal(t, "call-1", response.ID)
	assert.JSONEq(t, `{"a":1,"b":2}`, string(response.Result))
	assert.Eventually(t, r.Destroyed, time.Second, time.Millisecond)
	assert.Equal(t, 0, awaiter.Pending())
}

func TestAwaiter_CallTimeout(t *testing.T) {
	awaiter := channel.NewAwaiter(nil)
	c := channel.New(&echoTransport{silent: true}, awaiter)
	defer c.Terminate()

	r := newRequest(t, "slow")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := awaiter.Call(ctx, c, r)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, r.Destroyed())
	assert.False(t, c.IsWaitingCompletion("slow"))
	assert.Equal(t, 0, awaiter.Pending())
}

func TestAwaiter_CallDiscardedOnTerminate(t *testing.T) {
	awaiter := channel.NewAwaiter(nil)
	c := channel.New(&echoTransport{silent: true}, awaiter)

	r := newRequest(t, "pending")
	result := make(chan error, 1)
	go func() {
		_, err := awaiter.Call(context.Background(), c, r)
		result <- err
	}()
	require.Eventually(t, func() bool { return c.IsWaitingCompletion("pending") }, time.Second, time.Millisecond)

	c.Terminate()
	select {
	case err := <-result:
		assert.ErrorIs(t, err, channel.ErrDiscarded)
	case <-time.After(time.Second):
		t.Fatal("call was not released by terminate")
	}
}

func TestAwaiter_CallErrors(t *testing.T) {
	awaiter := channel.NewAwaiter(nil)
	c := channel.New(&echoTransport{silent: true}, awaiter)

	_, ok := awaiter.Await("taken")
	require.True(t, ok)
	_, err := awaiter.Call(context.Background(), c, newRequest(t, "taken"))
	var dupErr *request.DuplicateIdentifierError
	require.True(t, errors.As(err, &dupErr))
	assert.Equal(t, "taken", dupErr.ID)

	c.Terminate()
	_, err = awaiter.Call(context.Background(), c, newRequest(t, "late"))
	require.ErrorIs(t, err, channel.ErrTerminated)
	assert.Equal(t, 1, awaiter.Pending(), "only the manual waiter is left")
}

func TestAwaiter_Process(t *testing.T) {
	var testCases = []struct {
		description string
		responseID  string
		nextErr     error
		expectErr   error
		expectValue bool
	}{
		{description: "delivered", responseID: "r1", expectValue: true},
		{description: "mismatch", responseID: "r2", expectErr: channel.ErrResponseMismatch},
		{description: "next failure", responseID: "r1", nextErr: errors.New("bad payload")},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			next := channel.ProcessorFunc(func(ctx context.Context, response *channel.Response, r *request.Request) error {
				return testCase.nextErr
			})
			awaiter := channel.NewAwaiter(next)
			done, ok := awaiter.Await("r1")
			require.True(t, ok)

			err := awaiter.Process(context.Background(), &channel.Response{ID: testCase.responseID}, newRequest(t, "r1"))
			switch {
			case testCase.expectErr != nil:
				assert.ErrorIs(t, err, testCase.expectErr)
			case testCase.nextErr != nil:
				assert.ErrorIs(t, err, testCase.nextErr)
			default:
				assert.NoError(t, err)
			}
			response, ok := <-done
			assert.Equal(t, testCase.expectValue, ok)
			if testCase.expectValue {
				assert.Equal(t, "r1", response.ID)
			}
			assert.Equal(t, 0, awaiter.Pending())
		})
	}
}
