// Package playback orchestrates media sessions over the queue: source
// resolution through the streaming proxy, resume from the server-saved
// offset, periodic position persistence, heatmap recording, and autoplay
// advance.
package playback
