// Package api implements the typed REST client for the vertd service.
//
// Every call sends the bearer credential, negotiates JSON, and classifies the
// outcome into the Error taxonomy (unauthorized, http, transport, decoding)
// so callers can branch with errors.As without inspecting strings. The client
// never retries; the poll loop and commands own retry policy.
package api
