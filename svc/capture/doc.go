// Package capture routes links captured by the Alt+click content script.
//
// The content script sends {action: "createDiscardedTab", url} together
// with the id of the tab the click happened in. The router validates the
// URL and, depending on the configured Alt+click mode, ignores it, opens it
// right away as a discarded background tab, or hands it to the creation
// scheduler. Tabs opened in discarded mode are announced by the browser
// like any other new tab and reach the reload queue through the ordinary
// created-tab path.
package capture
