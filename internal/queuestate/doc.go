// Package queuestate maintains the locally cached mirror of the remote
// queue. Mutations apply optimistically to the local snapshot and are pushed
// to the service; a background poll reconciles the mirror while the client
// is in the foreground.
package queuestate
