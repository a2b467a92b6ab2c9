// Package probe implements a command line tool that opens a request channel, issues
// a single JSON-RPC call and prints the result. It is useful to verify that a server
// is reachable and that stored requests are restored and resubmitted as configured.
package probe
