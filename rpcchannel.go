package rpcchannel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/viant/rpcchannel/channel"
	"github.com/viant/rpcchannel/internal/logging"
	"github.com/viant/rpcchannel/metrics"
	"github.com/viant/rpcchannel/transport"
)

// New creates a channel with transport, store, logging and metrics configured via Options.
// Requests persisted by a previous run are restored into the stored pool and, with
// ResubmitStored, sent again.
func New(ctx context.Context, processor channel.Processor, options *Options) (*channel.Channel, error) {
	if options == nil {
		options = &Options{}
	}
	options.Init()
	logger := logging.New(logging.ParseLevel(options.LogLevel))
	tagged := logger.With("channel", options.Name)

	handler := transport.NewHandler(tagged, nil)
	clientOptions := []transport.Option{
		transport.WithLogger(tagged),
		transport.WithRateLimit(options.RateLimit.RPS, options.RateLimit.Burst),
	}
	if options.Transport.TimeoutMs > 0 {
		clientOptions = append(clientOptions, transport.WithTimeout(time.Duration(options.Transport.TimeoutMs)*time.Millisecond))
	}
	client, err := transport.Dial(ctx, options.dialer(handler), clientOptions...)
	if err != nil {
		return nil, err
	}
	ret, err := newChannel(ctx, client, processor, logger, options)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return ret, nil
}

// newChannel builds the channel around client; logger is tagged with the channel name by channel.New.
func newChannel(ctx context.Context, client channel.Transport, processor channel.Processor, logger *slog.Logger, options *Options) (*channel.Channel, error) {
	requestStore, err := options.newStore()
	if err != nil {
		return nil, err
	}
	observer, err := metrics.New(options.Name, options.Registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	ret := channel.New(client, processor,
		channel.WithName(options.Name),
		channel.WithLogger(logger),
		channel.WithStore(requestStore),
		channel.WithStoreTimeout(options.storeTimeout()),
		channel.WithObserver(observer),
		channel.WithResubmitStored(options.ResubmitStored),
	)
	restored, err := ret.Restore(ctx)
	if err != nil {
		return nil, err
	}
	logger = logger.With("channel", options.Name)
	if restored > 0 {
		logger.Info("restored stored requests", "count", restored)
	}
	if options.ResubmitStored && restored > 0 {
		if _, err := ret.ResubmitStoredRequests(ctx); err != nil {
			logger.Warn("failed to resubmit stored requests", "error", err)
		}
	}
	return ret, nil
}
