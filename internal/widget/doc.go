// Package widget is the reconciliation engine for one like/comment widget.
//
// A Widget owns the view state of a single page: the like count, the
// comment list, whether the list is expanded and where the like control is
// in its state machine:
//
//	Idle --Like--> Liking --confirmed--> LikeLocked
//	                  |----quota-------> LikeLocked (count unchanged)
//	                  '----failure-----> Idle
//
// A page liked in an earlier session starts in LikeLocked. Comment
// submission runs independently of the like control and of Expanded.
//
// The poll loop started by Start replaces the count and the whole comment
// list with the server's on every successful tick. A failed tick leaves the
// view alone and only updates SyncStatus. Overlapping responses apply in
// arrival order.
package widget
