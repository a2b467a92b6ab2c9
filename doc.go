// Package rpcchannel tracks requests issued over a persistent JSON-RPC connection.
//
// A channel keeps every outstanding request in up to three pools: observed, stored
// (kept for resubmission across reconnects, optionally persisted) and waiting for
// response (FIFO). A request removed from its last pool is destroyed; its response, if
// any, is processed exactly once. Reconnect drops observed and scheduled requests
// while keeping stored ones; Terminate destroys everything and releases the
// connection.
//
// The package is an umbrella over the channel, transport, store and metrics packages:
// New returns a fully configured channel.Channel from Options, which can be populated
// from CLI flags or loaded from YAML with LoadOptions.
//
// Example:
//
//	awaiter := channel.NewAwaiter(nil)
//	ch, _ := rpcchannel.New(ctx, awaiter, &rpcchannel.Options{ /* … */ })
//	r, _ := request.New("tools/list", nil)
//	response, _ := awaiter.Call(ctx, ch, r, channel.WithStorage())
package rpcchannel
