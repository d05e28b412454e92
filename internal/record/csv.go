package record

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"
)

// CSVHeader is the first row written by a CSVWriter.
var CSVHeader = []string{
	"Scenario",
	"Path",
	"Parameters",
	"HTTP Response",
	"Duration (s)",
	"Result count",
}

// CSVWriter appends one row per call record to an underlying writer. Rows are
// flushed as they are written so a crashed run still leaves a usable log.
type CSVWriter struct {
	mu     sync.Mutex
	w      *csv.Writer
	closer io.Closer
}

// NewCSVWriter writes the header row and returns a writer. If w is also an
// io.Closer it is closed by Close.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	cw := &CSVWriter{w: csv.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		cw.closer = c
	}

	if err := cw.w.Write(CSVHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	cw.w.Flush()
	if err := cw.w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	return cw, nil
}

func (c *CSVWriter) Write(rec CallRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	row := []string{
		rec.Scenario,
		rec.Path,
		rec.EncodedParams(),
		strconv.Itoa(rec.StatusCode),
		strconv.FormatFloat(rec.Duration.Seconds(), 'f', 6, 64),
		strconv.Itoa(rec.ResultCount),
	}
	if err := c.w.Write(row); err != nil {
		return fmt.Errorf("failed to write CSV row: %w", err)
	}
	c.w.Flush()
	return c.w.Error()
}

// Close flushes pending rows and closes the underlying writer if it owns one.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.w.Flush()
	err := c.w.Error()
	if c.closer != nil {
		if cerr := c.closer.Close(); err == nil {
			err = cerr
		}
		c.closer = nil
	}
	return err
}
