// Package blockwrite adapts a chunk callback into a forward-only io.Writer.
//
// A Writer is handed to a streaming producer (such as a zip archive writer)
// and relays every non-empty write to the callback it was built with. It
// keeps no buffer and no position. Operations that imply random access are
// present but always fail, so a producer probing for them learns right away
// that the output cannot be rewound.
package blockwrite

// ConsumeFunc receives one chunk per non-empty write, in write order.
// The chunk must not be retained after the call returns.
type ConsumeFunc func(p []byte) error

// Writer forwards writes to a ConsumeFunc. It is not safe for concurrent use.
type Writer struct {
	consume ConsumeFunc

	// first consumer error seen by Append
	err error
}

// New returns a Writer bound to consume.
func New(consume ConsumeFunc) *Writer {
	return &Writer{consume: consume}
}

// Write forwards p to the consumer. Empty writes are dropped: for chunked
// consumers a zero-length chunk means end of stream.
func (w *Writer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if err := w.consume(p); err != nil {
		return 0, err
	}

	return len(p), nil
}

// WriteString forwards a copy of s.
func (w *Writer) WriteString(s string) (int, error) {
	if len(s) == 0 {
		return 0, nil
	}

	return w.Write([]byte(s))
}

// Append writes p and returns w so calls can be chained:
//
//	w.Append(header).Append(body)
//
// The first error is kept and returned by Err; later Append calls do nothing.
func (w *Writer) Append(p []byte) *Writer {
	if w.err != nil {
		return w
	}

	_, w.err = w.Write(p)
	return w
}

// Err returns the first error hit by Append.
func (w *Writer) Err() error {
	return w.err
}

// Seek always fails.
func (w *Writer) Seek(offset int64, whence int) (int64, error) {
	return 0, unsupported("Seek")
}

// SetPosition always fails.
func (w *Writer) SetPosition(pos int64) error {
	return unsupported("SetPosition")
}

// Stringify always fails; forwarded bytes are never kept.
func (w *Writer) Stringify() (string, error) {
	return "", unsupported("Stringify")
}
