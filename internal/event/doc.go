// Package event provides a pub-sub event bus used by the playground
// Controller to tell its front ends what changed.
//
// The Controller publishes; the TUI, the headless run/watch commands and
// tests subscribe. Delivery is synchronous and ordered.
//
// # Event Categories
//
// Pane lifecycle:
//   - [PaneAddedEvent], [PaneRemovedEvent], [LayoutRebuiltEvent]
//
// Runs:
//   - [RunDispatchedEvent]: a run fanned out
//   - [RunCompletedEvent], [RunFailedEvent]: a result reached a live pane
//   - [RunDiscardedEvent]: a result arrived for a pane that is gone
//
// User notices:
//   - [NoticeEvent]
package event
