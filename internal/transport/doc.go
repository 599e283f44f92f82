// Package transport owns the request/reply exchange over ephemeral TCP
// connections and the retrying command dispatcher built on top of it.
//
// Ownership boundary:
// - connection lifecycle (one socket per exchange, closed on every exit path)
// - unsolicited-frame filtering against an accepted-command set
// - bounded retry with linear backoff
package transport
