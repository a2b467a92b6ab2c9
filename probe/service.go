package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/viant/rpcchannel/channel"
	"github.com/viant/rpcchannel/request"
)

// Service issues calls on a channel and prints their results.
type Service struct {
	channel *channel.Channel
	awaiter *channel.Awaiter
	output  io.Writer
}

// New creates a service; awaiter must be the channel processor.
func New(ch *channel.Channel, awaiter *channel.Awaiter, output io.Writer) *Service {
	return &Service{channel: ch, awaiter: awaiter, output: output}
}

// CallOption configures a single call.
type CallOption func(o *callOptions)

type callOptions struct {
	id     string
	submit []channel.SubmitOption
}

// WithID sets the request identifier
func WithID(id string) CallOption {
	return func(o *callOptions) {
		o.id = id
	}
}

// WithSubmitOptions passes pool placement options to the channel
func WithSubmitOptions(options ...channel.SubmitOption) CallOption {
	return func(o *callOptions) {
		o.submit = append(o.submit, options...)
	}
}

func (o *Options) callOptions() []CallOption {
	var ret []CallOption
	if o.ID != "" {
		ret = append(ret, WithID(o.ID))
	}
	if o.Observe {
		ret = append(ret, WithSubmitOptions(channel.WithObservation()))
	}
	if o.Store {
		ret = append(ret, WithSubmitOptions(channel.WithStorage()))
	}
	return ret
}

// Call submits method with JSON params and writes the indented result.
func (s *Service) Call(ctx context.Context, method string, params string, options ...CallOption) error {
	opts := &callOptions{}
	for _, opt := range options {
		opt(opts)
	}
	if params == "" {
		params = "{}"
	}
	if !json.Valid([]byte(params)) {
		return fmt.Errorf("invalid params: %v", params)
	}
	var requestOptions []request.Option
	if opts.id != "" {
		requestOptions = append(requestOptions, request.WithID(opts.id))
	}
	r, err := request.New(method, json.RawMessage(params), requestOptions...)
	if err != nil {
		return err
	}
	response, err := s.awaiter.Call(ctx, s.channel, r, opts.submit...)
	if err != nil {
		return err
	}
	if response.Error != nil {
		return fmt.Errorf("%v failed: %w", method, response.Error)
	}
	var out bytes.Buffer
	if err = json.Indent(&out, response.Result, "", "  "); err != nil {
		out.Reset()
		out.Write(response.Result)
	}
	out.WriteByte('\n')
	_, err = s.output.Write(out.Bytes())
	return err
}
