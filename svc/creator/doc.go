// Package creator opens queued links one at a time.
//
// Opening many links at once floods the browser with page loads before the
// reload queue ever sees them. The creation scheduler serializes creation
// itself: it creates the head of its FIFO as a background tab, waits until
// that tab finished loading, was closed or a timeout passed, sleeps a short
// grace period and moves on. At most one page load started by the creation
// scheduler is in flight at any time.
//
// The head is peeked, not popped, before Create is called. A failed Create
// drops the entry and the loop continues, so a malformed URL never stalls
// the queue. Pausing stops the loop between entries without clearing it.
//
// Tabs created here are owned by the scheduler until their wait ends. Owns
// lets the reload scheduler skip them, including the window between the
// browser announcing the tab and Create returning its id.
//
//	s := creator.New(svc, creator.WithPaused(isPaused))
//	defer s.Close()
//	s.Enqueue(ctx, "https://example.com", &senderTabID)
package creator
