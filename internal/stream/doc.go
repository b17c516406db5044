// Package stream maintains the long-lived websocket connection that pushes
// job events from the vertd service.
//
// The client is a small state machine (disconnected, connecting, connected,
// reconnecting) that re-establishes the connection with capped exponential
// backoff and never surfaces a terminal error to subscribers; the push
// channel is best-effort and the poll loop remains authoritative. Frames that
// fail to decode are dropped without tearing down the connection.
package stream
