package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

type BodySource interface {
	NewReader() (io.ReadCloser, error)
	ContentLength() (int64, bool)
	ContentType() string
}

// NewJSONBody encodes v once and returns a replayable body source.
func NewJSONBody(v interface{}) (BodySource, error) {
	if v == nil {
		return emptyBodySource{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return &inlineBodySource{data: data, contentType: "application/json"}, nil
}

type inlineBodySource struct {
	data        []byte
	contentType string
}

func (s *inlineBodySource) NewReader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func (s *inlineBodySource) ContentLength() (int64, bool) {
	return int64(len(s.data)), true
}

func (s *inlineBodySource) ContentType() string {
	return s.contentType
}

type emptyBodySource struct{}

func (emptyBodySource) NewReader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(nil)), nil
}

func (emptyBodySource) ContentLength() (int64, bool) {
	return 0, true
}

func (emptyBodySource) ContentType() string {
	return ""
}
