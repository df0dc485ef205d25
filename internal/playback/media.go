package playback

// Media is the playback surface the manager drives. Implementations wrap an
// actual player; tests use an in-memory fake. Position and Duration are in
// seconds.
type Media interface {
	Load(sourceURL string) error
	Play()
	Pause()
	Stop()
	Seek(seconds float64)
	Position() float64
	Duration() float64
	Playing() bool
}

// Preview is optionally implemented by Media backends that can render a
// still frame at an offset without disturbing playback.
type Preview interface {
	PreviewAt(seconds float64) error
}
