// Package presenter turns scheduler state into what the browser toolbar shows.
//
// Render is a pure mapping from State to Presentation: badge text and color,
// the action title and which context menu items are visible. A Presenter
// coalesces state updates and pushes the latest presentation to a Sink from
// its own goroutine, skipping presentations identical to the last one sent,
// so callers never block on the browser connection.
//
// Badge mapping:
//
//	paused                                  "II"  #ff9500
//	stay-discarded                          "X"   #9e9e9e
//	queue-active, reload queue non-empty    len   #4CAF50
//	queue-active, only creation queue       len   #2196F3
//	queue-active, both empty                "0"   #4CAF50
package presenter
