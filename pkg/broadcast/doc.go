// Package broadcast fans values out to any number of subscribers without
// letting a slow consumer block the producer.
//
// The schedulers publish presentation snapshots and the settings stores
// publish change notifications through a MemoryBroadcaster. Consumers of both
// only care about the most recent value, so a full subscriber buffer drops
// its oldest pending value instead of the new one.
//
//	b := broadcast.NewMemoryBroadcaster[presenter.Presentation](4)
//	sub := b.Subscribe(ctx)
//	for p := range sub.Receive() {
//		render(p)
//	}
//
// Subscriptions end when their context is canceled, when Close is called on
// the subscriber, or when the broadcaster itself is closed.
package broadcast
