// Package app composes the navigation controller and the screen models into
// one application instance per user.
//
// An App mounts a screen whenever navigation enters it and closes it when
// navigation leaves, so every visit to the meeting list or a transcript list
// starts from a fresh fetch. Front-ends drive it through its action methods,
// read it through Snapshot and learn about changes through Changed.
package app
