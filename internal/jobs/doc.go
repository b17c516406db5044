// Package jobs defines the transcoding job model shared by the REST client,
// the event stream, and the watcher, plus the reducer that merges pushed
// events into a job list.
//
// The job identifier is the sole key for identity; every merge path (poll
// replace, event apply, command upsert) funnels through the helpers here so
// ordering and replacement semantics stay in one place. Timestamp handles the
// three textual date encodings the service emits.
package jobs
