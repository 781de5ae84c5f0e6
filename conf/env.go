package conf

import (
	"bytes"
	"io"
	"os"
)

// NewEnvExpandedReader expands ${VAR} references in the config before the
// yaml decoder sees it, so secrets stay out of the file.
func NewEnvExpandedReader(r io.Reader) io.Reader {
	data, err := io.ReadAll(r)
	if err != nil {
		return &errReader{err}
	}

	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	return bytes.NewReader([]byte(expanded))
}

type errReader struct {
	err error
}

func (r *errReader) Read([]byte) (int, error) {
	return 0, r.err
}
