package interfaces

// ProgressSink receives transfer progress of a single fetch. Start is called
// once before the first chunk, Advance after every chunk written and Finish
// once the transfer ends, successfully or not.
type ProgressSink interface {
	// Start begins a task. total is negative when the size is unknown.
	Start(total int64)
	Advance(n int64)
	Finish()
}
