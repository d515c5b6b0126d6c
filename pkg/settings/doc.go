// Package settings defines the user-tunable scheduler options and the store
// contract used to persist them.
//
// Settings carries the seven options the schedulers read: maxConcurrentTabs,
// queueLimit, loadBehavior, isPaused, discardingDelay, loadingDelay and
// altClickMode. Stores keep them in a flat string form (Raw) keyed by those
// names, so every backend can persist them as a hash, a table row set, a
// document or a YAML file.
//
// Reading is lenient: Parse falls back to the default of any key whose value
// is missing or malformed and clamps numbers into range, returning the
// problems as an error alongside a usable Settings. Writing is strict:
// Apply and Validate reject out-of-range values.
//
// A Store publishes a fresh snapshot on Watch after every change, whether the
// change came from this process or from another writer of the same backend.
package settings
