package metrics_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/rpcchannel/channel"
	"github.com/viant/rpcchannel/metrics"
	"github.com/viant/rpcchannel/request"
)

type nopTransport struct{}

func (nopTransport) Send(ctx context.Context, r *request.Request) error { return nil }
func (nopTransport) ResetConnection(ctx context.Context) error         { return nil }

func TestObserver(t *testing.T) {
	registry := prometheus.NewRegistry()
	observer, err := metrics.New("test", registry)
	require.NoError(t, err)

	failing := errors.New("rejected")
	c := channel.New(nopTransport{}, channel.ProcessorFunc(func(ctx context.Context, response *channel.Response, r *request.Request) error {
		if response.Error != nil {
			return failing
		}
		return nil
	}), channel.WithObserver(observer))

	ctx := context.Background()
	ok, err := request.New("m", nil, request.WithID("ok"))
	require.NoError(t, err)
	bad, err := request.New("m", nil, request.WithID("bad"))
	require.NoError(t, err)
	stored, err := request.New("m", nil, request.WithID("stored"))
	require.NoError(t, err)
	require.NoError(t, c.Submit(ctx, ok, channel.WithObservation()))
	require.NoError(t, c.Submit(ctx, bad))
	require.NoError(t, c.Store(ctx, stored))

	collectors := observer.Collectors()
	poolSize := collectors[0].(*prometheus.GaugeVec)
	assert.Equal(t, 2.0, testutil.ToFloat64(poolSize.WithLabelValues("waiting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(poolSize.WithLabelValues("observed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(poolSize.WithLabelValues("stored")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collectors[1]))

	c.HandleResponse(ctx, &channel.Response{ID: "ok"})
	c.HandleResponse(ctx, &channel.Response{ID: "bad", Error: errors.New("server error")})
	require.NoError(t, c.Reconnect(ctx))
	c.Terminate()

	responses := collectors[3].(*prometheus.CounterVec)
	assert.Equal(t, 1.0, testutil.ToFloat64(responses.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(responses.WithLabelValues("failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(collectors[2]))
	assert.Equal(t, 1.0, testutil.ToFloat64(collectors[4]))
	assert.Equal(t, 0.0, testutil.ToFloat64(poolSize.WithLabelValues("stored")))
}

func TestNew_DuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := metrics.New("dup", registry)
	require.NoError(t, err)
	_, err = metrics.New("dup", registry)
	assert.Error(t, err)

	observer, err := metrics.New("unregistered", nil)
	require.NoError(t, err)
	assert.Len(t, observer.Collectors(), 5)
}
