package rpcchannel

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/rpcchannel/channel"
	"github.com/viant/rpcchannel/internal/logging"
	"github.com/viant/rpcchannel/request"
	"github.com/viant/rpcchannel/store"
	"github.com/viant/rpcchannel/transport"
)

type mockTransport struct {
	mu   sync.Mutex
	sent []string
}

func (m *mockTransport) Send(ctx context.Context, r *request.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, r.ID)
	return nil
}

func (m *mockTransport) ResetConnection(ctx context.Context) error { return nil }

func TestOptions_Init(t *testing.T) {
	options := &Options{}
	options.Init()
	assert.Equal(t, "rpcchannel", options.Name)
	assert.Equal(t, "memory", options.Store.Type)
	assert.Equal(t, "info", options.LogLevel)
	assert.Equal(t, 5000, options.StoreTimeoutMs)

	custom := &Options{Name: "orders", Store: ChannelStore{Type: "file"}, StoreTimeoutMs: 10}
	custom.Init()
	assert.Equal(t, "orders", custom.Name)
	assert.Equal(t, "file", custom.Store.Type)
	assert.Equal(t, 10, custom.StoreTimeoutMs)
}

func TestLoadOptions(t *testing.T) {
	location := filepath.Join(t.TempDir(), "channel.yaml")
	require.NoError(t, os.WriteFile(location, []byte(`name: orders
transport:
  type: stdio
  command: ./server
  arguments: [--quiet]
  timeoutMs: 250
store:
  type: redis
  addr: localhost:6379
  prefix: "orders:"
rateLimit:
  rps: 5
  burst: 2
resubmitStored: true
logLevel: debug
`), 0o644))

	options, err := LoadOptions(context.Background(), location)
	require.NoError(t, err)
	assert.Equal(t, "orders", options.Name)
	assert.Equal(t, "stdio", options.Transport.Type)
	assert.Equal(t, "./server", options.Transport.Command)
	assert.Equal(t, []string{"--quiet"}, options.Transport.Arguments)
	assert.Equal(t, 250, options.Transport.TimeoutMs)
	assert.Equal(t, "localhost:6379", options.Store.Addr)
	assert.Equal(t, "orders:", options.Store.Prefix)
	assert.Equal(t, 5.0, options.RateLimit.RPS)
	assert.Equal(t, 2, options.RateLimit.Burst)
	assert.True(t, options.ResubmitStored)
	assert.Equal(t, "debug", options.LogLevel)
	assert.Equal(t, 5000, options.StoreTimeoutMs)

	_, err = LoadOptions(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestOptions_NewStore(t *testing.T) {
	mr := miniredis.RunT(t)
	var testCases = []struct {
		description string
		store       ChannelStore
		expectType  any
		expectErr   bool
	}{
		{description: "default", store: ChannelStore{}, expectType: &store.MemoryStore{}},
		{description: "file", store: ChannelStore{Type: "file", URL: t.TempDir()}, expectType: &store.FileStore{}},
		{description: "file without url", store: ChannelStore{Type: "file"}, expectErr: true},
		{description: "redis", store: ChannelStore{Type: "redis", Addr: mr.Addr()}, expectType: &store.RedisStore{}},
		{description: "redis without addr", store: ChannelStore{Type: "redis"}, expectErr: true},
		{description: "unsupported", store: ChannelStore{Type: "tape"}, expectErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			options := &Options{Store: testCase.store}
			actual, err := options.newStore()
			if testCase.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, testCase.expectType, actual)
		})
	}
}

func TestNew_NoTransport(t *testing.T) {
	_, err := New(context.Background(), nil, &Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, transport.ErrNoTransport), err.Error())

	_, err = New(context.Background(), nil, &Options{Transport: ChannelTransport{Type: "stdio"}})
	assert.Error(t, err)
}

func TestNewChannel_RestoresStoredRequests(t *testing.T) {
	ctx := context.Background()
	baseURL := t.TempDir()
	previous := store.NewFileStore(baseURL)
	for _, id := range []string{"s1", "s2"} {
		r, err := request.New("jobs/run", map[string]string{"job": id}, request.WithID(id))
		require.NoError(t, err)
		require.NoError(t, previous.Put(ctx, r))
	}

	sender := &mockTransport{}
	options := &Options{
		Name:           "restored",
		Store:          ChannelStore{Type: "file", URL: baseURL},
		ResubmitStored: true,
		LogLevel:       "error",
		Registerer:     prometheus.NewRegistry(),
	}
	options.Init()
	output := &bytes.Buffer{}
	c, err := newChannel(ctx, sender, channel.NewAwaiter(nil), logging.NewWithWriter(output, slog.LevelInfo), options)
	require.NoError(t, err)
	assert.Equal(t, "restored", c.Name())
	assert.Contains(t, output.String(), "restored stored requests")
	for _, line := range strings.Split(strings.TrimSpace(output.String()), "\n") {
		assert.Equal(t, 1, strings.Count(line, "channel=restored"), line)
	}
	assert.ElementsMatch(t, []string{"s1", "s2"}, sender.sent)
	assert.True(t, c.IsWaitingStoredRequestCompletion("s1"))
	assert.True(t, c.IsWaitingCompletion("s2"))

	stored, ok := c.StoredRequestWithIdentifier("s1")
	require.True(t, ok)
	c.RemoveStoredRequest(stored)
	_, found, err := previous.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, found)

	c.Terminate()
	remaining, err := previous.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestNewChannel_DuplicateMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	options := &Options{Name: "dup", Registerer: registry}
	options.Init()
	_, err := newChannel(context.Background(), &mockTransport{}, nil, logging.NewNop(), options)
	require.NoError(t, err)
	_, err = newChannel(context.Background(), &mockTransport{}, nil, logging.NewNop(), options)
	assert.Error(t, err)
}
