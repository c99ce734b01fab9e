package listener

import (
	"bytes"
	"io"
)

var (
	crlf = []byte("\r\n")
	cr   = []byte("\r")
	lf   = []byte("\n")
)

// lineEndings normalizes terminal input to \n and expands \n to \r\n on
// output. Telnet clients send \r\n, a raw ssh channel a lone \r.
type lineEndings struct {
	io.ReadWriter
}

func newCRLFReadWriter(rw io.ReadWriter) io.ReadWriter {
	return lineEndings{ReadWriter: rw}
}

func (l lineEndings) Read(p []byte) (int, error) {
	n, err := l.ReadWriter.Read(p)
	if n == 0 {
		return n, err
	}
	in := bytes.ReplaceAll(p[:n], crlf, lf)
	in = bytes.ReplaceAll(in, cr, lf)
	return copy(p, in), err
}

func (l lineEndings) Write(p []byte) (int, error) {
	if _, err := l.ReadWriter.Write(bytes.ReplaceAll(p, lf, crlf)); err != nil {
		return 0, err
	}
	return len(p), nil
}
