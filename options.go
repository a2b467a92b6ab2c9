package rpcchannel

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/afs"
	rpctransport "github.com/viant/jsonrpc/transport"
	"github.com/viant/jsonrpc/transport/client/http/sse"
	"github.com/viant/jsonrpc/transport/client/http/streamable"
	"github.com/viant/jsonrpc/transport/client/stdio"
	"github.com/viant/rpcchannel/store"
	"github.com/viant/rpcchannel/transport"
	"gopkg.in/yaml.v3"
)

// Options
//
// defines options for configuring a request channel.
type Options struct {
	Name           string           `yaml:"name" json:"name,omitempty"  short:"n" long:"name" description:"channel name"`
	Transport      ChannelTransport `yaml:"transport,omitempty" json:"transport,omitempty"`
	Store          ChannelStore     `yaml:"store,omitempty" json:"store,omitempty"`
	RateLimit      ChannelRateLimit `yaml:"rateLimit,omitempty" json:"rateLimit,omitempty"`
	ResubmitStored bool             `yaml:"resubmitStored,omitempty" json:"resubmitStored,omitempty"  long:"resubmit-stored" description:"resend stored requests after restore and reconnect"`
	LogLevel       string           `yaml:"logLevel,omitempty" json:"logLevel,omitempty"  short:"l" long:"log-level" description:"log level" choice:"debug" choice:"info" choice:"warn" choice:"error"`
	StoreTimeoutMs int              `yaml:"storeTimeoutMs,omitempty" json:"storeTimeoutMs,omitempty"  long:"store-timeout" description:"store operation timeout in ms"`

	// Registerer, if set, receives the channel Prometheus collectors.
	Registerer prometheus.Registerer `yaml:"-" json:"-"`
}

// ChannelTransport defines the JSON-RPC connection options.
type ChannelTransport struct {
	Type                  string `yaml:"type" json:"type"  short:"T" long:"transport-type" description:"transport type, e.g., stdio, sse, streamable" choice:"stdio" choice:"sse" choice:"streamable"`
	ChannelTransportStdio `yaml:",inline"`
	ChannelTransportHTTP  `yaml:",inline"`
	TimeoutMs             int `yaml:"timeoutMs,omitempty" json:"timeoutMs,omitempty"  long:"timeout" description:"round trip timeout in ms"`
}

// ChannelTransportStdio defines options for a standard input/output transport.
type ChannelTransportStdio struct {
	Command   string   `yaml:"command" json:"command"  short:"C" long:"command" description:"server command"`
	Arguments []string `yaml:"arguments" json:"arguments"  short:"A" long:"arguments" description:"server command arguments"`
}

// ChannelTransportHTTP defines options for sse and streamable transports.
type ChannelTransportHTTP struct {
	URL string `yaml:"url" json:"url"  short:"u" long:"url" description:"server url"`
}

// ChannelStore defines where stored requests are persisted.
type ChannelStore struct {
	Type     string `yaml:"type" json:"type"  short:"S" long:"store-type" description:"store type" choice:"memory" choice:"file" choice:"redis"`
	URL      string `yaml:"url,omitempty" json:"url,omitempty"  long:"store-url" description:"file store base URL"`
	Addr     string `yaml:"addr,omitempty" json:"addr,omitempty"  long:"redis-addr" description:"redis address"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"  long:"redis-password" description:"redis password"`
	DB       int    `yaml:"db,omitempty" json:"db,omitempty"  long:"redis-db" description:"redis database"`
	Prefix   string `yaml:"prefix,omitempty" json:"prefix,omitempty"  long:"redis-prefix" description:"redis key prefix"`
}

// ChannelRateLimit throttles submissions.
type ChannelRateLimit struct {
	RPS   float64 `yaml:"rps,omitempty" json:"rps,omitempty"  long:"rps" description:"max requests per second"`
	Burst int     `yaml:"burst,omitempty" json:"burst,omitempty"  long:"burst" description:"rate limit burst"`
}

func (o *Options) Init() {
	if o.Name == "" {
		o.Name = "rpcchannel"
	}
	if o.Store.Type == "" {
		o.Store.Type = "memory"
	}
	if o.LogLevel == "" {
		o.LogLevel = "info"
	}
	if o.StoreTimeoutMs <= 0 {
		o.StoreTimeoutMs = 5000
	}
}

// LoadOptions reads YAML options from URL (any afs supported location).
func LoadOptions(ctx context.Context, URL string) (*Options, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load options %v: %w", URL, err)
	}
	ret := &Options{}
	if err = yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode options %v: %w", URL, err)
	}
	ret.Init()
	return ret, nil
}

func (o *Options) storeTimeout() time.Duration {
	return time.Duration(o.StoreTimeoutMs) * time.Millisecond
}

// newStore constructs the persistence backend for the stored pool.
func (o *Options) newStore() (store.Store, error) {
	switch o.Store.Type {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "file":
		if o.Store.URL == "" {
			return nil, fmt.Errorf("URL is required for file store")
		}
		return store.NewFileStore(o.Store.URL), nil
	case "redis":
		if o.Store.Addr == "" {
			return nil, fmt.Errorf("addr is required for redis store")
		}
		var opts []store.RedisOption
		if o.Store.Prefix != "" {
			opts = append(opts, store.WithPrefix(o.Store.Prefix))
		}
		return store.NewRedisStore(o.Store.Addr, o.Store.Password, o.Store.DB, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %v", o.Store.Type)
	}
}

// dialer returns a factory opening a JSON-RPC connection per ChannelTransport; it is
// used for the initial connection and every reconnect.
func (o *Options) dialer(handler *transport.Handler) transport.Dialer {
	return func(ctx context.Context) (rpctransport.Transport, error) {
		switch o.Transport.Type {
		case "stdio":
			stdioOptions := o.Transport.ChannelTransportStdio
			if stdioOptions.Command == "" {
				return nil, fmt.Errorf("command is required for stdio transport")
			}
			ret, err := stdio.New(stdioOptions.Command,
				stdio.WithHandler(handler),
				stdio.WithArguments(stdioOptions.Arguments...))
			if err != nil {
				return nil, fmt.Errorf("failed to create stdio transport: %w", err)
			}
			return ret, nil
		case "sse":
			httpOptions := o.Transport.ChannelTransportHTTP
			if httpOptions.URL == "" {
				return nil, fmt.Errorf("URL is required for sse transport")
			}
			ret, err := sse.New(ctx, httpOptions.URL, sse.WithHandler(handler))
			if err != nil {
				return nil, fmt.Errorf("failed to create SSE transport: %w", err)
			}
			return ret, nil
		case "streamable":
			httpOptions := o.Transport.ChannelTransportHTTP
			if httpOptions.URL == "" {
				return nil, fmt.Errorf("URL is required for streamable transport")
			}
			ret, err := streamable.New(ctx, httpOptions.URL, streamable.WithHandler(handler))
			if err != nil {
				return nil, fmt.Errorf("failed to create streamable transport: %w", err)
			}
			return ret, nil
		default:
			return nil, transport.ErrNoTransport
		}
	}
}
