// Command streamq is the CLI for a remote media queue service: it manages
// the queue, categories, downloads, clip extraction, playback state, and
// settings from the terminal.
package main
