// Package loader throttles background tab loading.
//
// New non-active tabs are discarded as they appear and appended to a bounded
// FIFO reload queue. The scheduler reloads them again as capacity allows,
// using one of two strategies selected by the loading delay:
//
//   - burst: while fewer than MaxConcurrentTabs reloads are in flight, pop
//     the head and reload it. A completed, activated or closed tab frees its
//     slot and the next tab is admitted under the same lock hold, so the
//     in-flight count never dips during a hand-off.
//   - delayed: a single drain goroutine reloads one tab at a time, waits for
//     it to finish loading (bounded by a timeout), then pauses for the
//     loading delay before the next one.
//
// Every admission goes through admit and every exit path through release,
// which is idempotent per tab id. ActiveLoads is always the size of the
// in-flight set.
//
// The drain goroutine is guarded by an Idle/Draining state machine. Resume
// forces it back to Idle, clears the in-flight set and drives again; it is
// the recovery path for a scheduler whose state no longer matches reality.
package loader
