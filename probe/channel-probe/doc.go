// Command channel-probe opens a request channel to a JSON-RPC server, issues one call
// and prints the result.
//
//	channel-probe -T stdio -C ./server -m tools/list --store
package main
