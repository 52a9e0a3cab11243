package structs

// Sink receives an archive as an ordered series of chunks.
//
// Put is handed to blockwrite.New as the consumer callback, so it is never
// called with an empty chunk and must not keep data after returning.
//
// Exactly one of Stop or Abort ends a started sink. Stop marks the archive
// complete. Abort must leave the destination without an end-of-stream
// marker so a truncated archive is never mistaken for a whole one.
type Sink interface {
	Start() error
	Stop() error
	Abort(cause error) error
	Put(data []byte) error
}
