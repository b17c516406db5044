// Package watcher owns the canonical job collection and the lifecycle of the
// two ingestion channels that feed it.
//
// A session pairs one endpoint and credential; starting it launches a poll
// loop against the REST client and a subscription to the event stream, and
// every mutation (poll replace, event apply, command upsert) crosses into a
// single apply goroutine so the collection is never torn. Results from a
// superseded session are discarded by token before they reach that goroutine.
package watcher
