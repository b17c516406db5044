// Package upload drives PUT transfers of media files to pre-signed
// destinations, reporting fractional progress and resolving each transfer
// exactly once.
//
// Progress and completion arrive on the transport goroutine while the caller
// blocks on the result, so every callback is routed through a mutex-guarded
// registry keyed by a per-transfer id. A slot leaves the registry exactly
// once, on completion, which makes double resolution impossible. Transfers
// that fail before any byte is sent are treated as connectivity gaps and
// retried until the caller's context expires.
package upload
