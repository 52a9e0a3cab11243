package blockwrite

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	chunks [][]byte
	err    error
}

func (r *recorder) consume(p []byte) error {
	if r.err != nil {
		return r.err
	}
	r.chunks = append(r.chunks, append([]byte(nil), p...))
	return nil
}

func TestWriteSkipsEmptyChunks(t *testing.T) {
	rec := &recorder{}
	w := New(rec.consume)

	for _, p := range [][]byte{nil, {}, []byte("")} {
		n, err := w.Write(p)
		assert.NoError(t, err)
		assert.Equal(t, 0, n)
	}

	n, err := w.WriteString("")
	assert.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.Empty(t, rec.chunks)
}

func TestWriteForwardsBytesUnchanged(t *testing.T) {
	rec := &recorder{}
	w := New(rec.consume)

	payload := []byte{0x50, 0x4b, 0x03, 0x04, 0x00, 0xff, 0xfe, 0xc3, 0x28}
	n, err := w.Write(payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)

	require.Len(t, rec.chunks, 1)
	assert.Equal(t, payload, rec.chunks[0])
}

func TestWritePassesCallerSlice(t *testing.T) {
	var got []byte
	w := New(func(p []byte) error {
		got = p
		return nil
	})

	payload := []byte("abc")
	_, err := w.Write(payload)
	require.NoError(t, err)
	assert.Same(t, &payload[0], &got[0])
}

func TestWriteStringCopiesInput(t *testing.T) {
	var got []byte
	w := New(func(p []byte) error {
		got = p
		p[0] = 'X'
		return nil
	})

	s := "héllo \xff"
	n, err := w.WriteString(s)
	require.NoError(t, err)
	assert.Equal(t, len(s), n)
	assert.Equal(t, "héllo \xff", s)
	assert.Equal(t, []byte("Xéllo \xff"), got)
}

func TestWritePreservesOrder(t *testing.T) {
	rec := &recorder{}
	w := New(rec.consume)

	chunks := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	for _, c := range chunks {
		_, err := w.Write(c)
		require.NoError(t, err)
	}

	assert.Equal(t, chunks, rec.chunks)
}

func TestAppendChains(t *testing.T) {
	chained := &recorder{}
	New(chained.consume).Append([]byte("a")).Append(nil).Append([]byte("b"))

	sequential := &recorder{}
	w := New(sequential.consume)
	w.Append([]byte("a"))
	w.Append(nil)
	w.Append([]byte("b"))

	assert.Equal(t, sequential.chunks, chained.chunks)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, chained.chunks)
}

func TestConsumerErrorPropagates(t *testing.T) {
	boom := errors.New("client went away")
	calls := 0
	w := New(func(p []byte) error {
		calls++
		return boom
	})

	n, err := w.Write([]byte("data"))
	assert.Same(t, boom, err)
	assert.Equal(t, 0, n)

	// no suppression: every Write reaches the consumer again
	_, err = w.Write([]byte("more"))
	assert.Same(t, boom, err)
	assert.Equal(t, 2, calls)
}

func TestAppendKeepsFirstError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	w := New(func(p []byte) error {
		calls++
		return boom
	})

	assert.Same(t, w, w.Append([]byte("a")).Append([]byte("b")))
	assert.Same(t, boom, w.Err())
	assert.Equal(t, 1, calls)
}

func TestConsumerPanicPropagates(t *testing.T) {
	w := New(func(p []byte) error {
		panic("consumer exploded")
	})

	assert.PanicsWithValue(t, "consumer exploded", func() {
		_, _ = w.Write([]byte("x"))
	})
}

func TestNilConsumerFailsOnFirstWrite(t *testing.T) {
	w := New(nil)

	_, err := w.Write(nil)
	assert.NoError(t, err)

	assert.Panics(t, func() {
		_, _ = w.Write([]byte("x"))
	})
}

func TestRejectedOperations(t *testing.T) {
	rec := &recorder{}
	w := New(rec.consume)

	tests := []struct {
		name string
		call func() error
	}{
		{"Seek", func() error { _, err := w.Seek(0, io.SeekStart); return err }},
		{"Seek", func() error { _, err := w.Seek(-42, io.SeekEnd); return err }},
		{"SetPosition", func() error { return w.SetPosition(0) }},
		{"SetPosition", func() error { return w.SetPosition(1 << 40) }},
		{"Stringify", func() error { _, err := w.Stringify(); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)

			var opErr *UnsupportedOperationError
			require.ErrorAs(t, err, &opErr)
			assert.Equal(t, tt.name, opErr.Op)
			assert.ErrorIs(t, err, ErrNotRewindable)
			assert.ErrorIs(t, err, errors.ErrUnsupported)
			assert.Equal(t, tt.name+" not supported - this IO adapter is non-rewindable", err.Error())
		})
	}

	assert.Empty(t, rec.chunks)
	assert.NoError(t, w.Err())
}

func TestWriterUsableWithIOCopy(t *testing.T) {
	var out bytes.Buffer
	w := New(func(p []byte) error {
		_, err := out.Write(p)
		return err
	})

	src := bytes.Repeat([]byte("0123456789"), 10000)
	n, err := io.Copy(w, bytes.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, int64(len(src)), n)
	assert.Equal(t, src, out.Bytes())
}
