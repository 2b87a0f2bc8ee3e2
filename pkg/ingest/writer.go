package ingest

import (
	"bufio"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// RecordWriter is the per-temp-file sink a RecordWriterProvider hands
// back. The core writes one record at a time and closes it once, at
// rotation.
type RecordWriter interface {
	Write(r *Record) error
	Close() error
}

// RecordWriterProvider constructs a RecordWriter bound to a temp file
// path, sized/shaped by a sample record (e.g. to pick a schema-derived
// column layout). GetExtension names the format for committed filenames.
type RecordWriterProvider interface {
	GetRecordWriter(tempPath string, sample *Record) (RecordWriter, error)
	GetExtension() string
}

// JSONLRecordWriterProvider writes one JSON object per line, the simplest
// concrete format that still exercises temp-file lifecycle end to end.
type JSONLRecordWriterProvider struct{}

func (JSONLRecordWriterProvider) GetRecordWriter(tempPath string, _ *Record) (RecordWriter, error) {
	f, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening temp file %s", tempPath)
	}
	return &jsonlWriter{f: f, w: bufio.NewWriter(f)}, nil
}

func (JSONLRecordWriterProvider) GetExtension() string {
	return "jsonl"
}

type jsonlLine struct {
	Key       string            `json:"key,omitempty"`
	Value     json.RawMessage   `json:"value"`
	Headers   map[string]string `json:"headers,omitempty"`
	Topic     string            `json:"topic"`
	Partition int32             `json:"partition"`
	Offset    int64             `json:"offset"`
	Timestamp int64             `json:"timestamp"`
}

type jsonlWriter struct {
	f *os.File
	w *bufio.Writer
}

func (j *jsonlWriter) Write(r *Record) error {
	headers := make(map[string]string, len(r.Headers))
	for _, h := range r.Headers {
		headers[h.Key] = string(h.Value)
	}

	value := r.Value
	if !json.Valid(value) {
		b, err := json.Marshal(string(value))
		if err != nil {
			return err
		}
		value = b
	}

	line := jsonlLine{
		Key:       string(r.Key),
		Value:     value,
		Headers:   headers,
		Topic:     r.Topic,
		Partition: r.Partition,
		Offset:    r.Offset,
		Timestamp: r.Timestamp.UnixMilli(),
	}

	b, err := json.Marshal(line)
	if err != nil {
		return err
	}
	b = append(b, '\n')

	if _, err := j.w.Write(b); err != nil {
		return err
	}
	return nil
}

func (j *jsonlWriter) Close() error {
	if err := j.w.Flush(); err != nil {
		_ = j.f.Close()
		return err
	}
	return j.f.Close()
}

var _ io.Closer = (*jsonlWriter)(nil)
