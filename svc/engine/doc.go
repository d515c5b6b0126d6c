// Package engine wires the tab load scheduler, the tab creation scheduler,
// the Alt-click router and the presenter to a settings store.
//
// The engine is the single tabs.Handler registered with the browser
// transport. Events are routed to the shared wait registry first, so drain
// loops observe completions and removals before the schedulers react, and
// then to the load scheduler. Created tabs opened by the creation scheduler
// are kept out of the reload queue.
//
// Settings are loaded once by Run, re-applied on every change reported by
// the store, and written back when a manual control changes them. A store
// failure never stops scheduling: the engine keeps working with the last
// applied values.
//
//	eng := engine.New(browser, store, presenter.ToolbarSink{T: browser},
//		engine.WithLogger(log),
//		engine.WithOnSettings(func(ctx context.Context, s settings.Settings) {
//			_ = browser.PushSettings(ctx, s.Raw())
//		}),
//	)
//	browser.SetHandler(eng)
//	return eng.Run(ctx)
package engine
