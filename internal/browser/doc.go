// Package browser holds the screen models shared by the terminal and web
// front-ends: the meeting list, the transcript list of one meeting and the
// transcript content view.
//
// The two list screens are built on Loader, a four-phase state machine
// (Loading, Error, Empty, Success) around a single fetch. Every fetch runs
// on its own goroutine and carries a generation number; a result whose
// generation is no longer current is dropped. Front-ends read immutable
// snapshots and never block on the network unless they wait on the channel
// a fetch returns.
package browser
