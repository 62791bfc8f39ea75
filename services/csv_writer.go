package services

import (
	"encoding/csv"
	"io"
)

// utf8BOM is prefixed to the CSV so spreadsheet tools detect UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// csvStreamer emits CSV rows incrementally so large exports never buffer
// the whole document. Records are CRLF-terminated and fields containing
// commas, quotes or line breaks are quoted with doubled inner quotes.
type csvStreamer struct {
	cw *csv.Writer
}

// newCSVStreamer writes the BOM and returns a streamer over out.
func newCSVStreamer(out io.Writer) (*csvStreamer, error) {
	if _, err := out.Write(utf8BOM); err != nil {
		return nil, err
	}
	cw := csv.NewWriter(out)
	cw.UseCRLF = true
	return &csvStreamer{cw: cw}, nil
}

// WriteRow writes one record and flushes it to the underlying stream.
func (s *csvStreamer) WriteRow(row []string) error {
	if err := s.cw.Write(row); err != nil {
		return err
	}
	s.cw.Flush()
	return s.cw.Error()
}
