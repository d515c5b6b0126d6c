// Package tabs describes the browser tab model and the tab lifecycle service
// the schedulers talk to.
//
// The browser itself is an external collaborator. Everything the schedulers
// need from it is captured by two contracts:
//
//   - Service: the calls the daemon issues (create, discard, reload, query, get).
//   - Event: the lifecycle notifications it receives (created, updated,
//     activated, removed).
//
// The production Service is implemented by the WebSocket bridge
// (github.com/dmitrymomot/tabloader/pkg/bridge); tests use the in-memory fake
// from the tabstest subpackage.
//
// # Usage
//
//	router := tabs.NewRouter()
//	router.On(tabs.EventRemoved, tabs.HandlerFunc(func(ctx context.Context, e tabs.Event) {
//		log.Println("tab closed", e.TabID)
//	}))
//
//	bridgeServer.SetHandler(router)
//
// # Errors
//
// ErrTabNotFound is the canonical "tab vanished" error. Service implementations
// must return an error matching it with errors.Is when the target tab no longer
// exists, so schedulers can treat it as a transient failure.
package tabs
