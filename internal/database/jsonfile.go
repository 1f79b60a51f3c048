package database

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesikahq/hospital-records/internal/records"
)

// PersistenceError reports a data file that could not be read, decoded or
// written. A missing file is not a PersistenceError.
type PersistenceError struct {
	Path string
	Op   string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ErrNotArray is wrapped by a PersistenceError when the top-level JSON value
// of a data file is not an array.
var ErrNotArray = errors.New("top-level value is not an array")

// ReadArray reads the elements of a JSON array. Numbers are kept as
// json.Number so integer fields never pass through float64. The elements are
// returned as decoded; telling objects from other values is left to the
// caller. A path that does not exist yields no elements and no error.
func ReadArray(path string) ([]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &PersistenceError{Path: path, Op: "read", Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &PersistenceError{Path: path, Op: "decode", Err: io.ErrUnexpectedEOF}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, &PersistenceError{Path: path, Op: "decode", Err: err}
	}
	if dec.More() {
		return nil, &PersistenceError{Path: path, Op: "decode", Err: errors.New("trailing data after top-level value")}
	}

	list, ok := raw.([]interface{})
	if !ok {
		return nil, &PersistenceError{Path: path, Op: "decode", Err: ErrNotArray}
	}
	return list, nil
}

// WriteRecords replaces the file at path with recs encoded as a JSON array.
// The data is written to a temporary file in the same directory, synced and
// renamed over the target, so a failed write leaves the previous content.
func WriteRecords(path string, recs []records.Record, indent int) (err error) {
	if recs == nil {
		recs = []records.Record{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", indent))
	}
	if err := enc.Encode(recs); err != nil {
		return &PersistenceError{Path: path, Op: "encode", Err: err}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PersistenceError{Path: path, Op: "write", Err: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return &PersistenceError{Path: path, Op: "write", Err: err}
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(buf.Bytes()); err != nil {
		return &PersistenceError{Path: path, Op: "write", Err: err}
	}
	if err = tmp.Sync(); err != nil {
		return &PersistenceError{Path: path, Op: "sync", Err: err}
	}
	if err = tmp.Close(); err != nil {
		return &PersistenceError{Path: path, Op: "write", Err: err}
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return &PersistenceError{Path: path, Op: "write", Err: err}
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return &PersistenceError{Path: path, Op: "rename", Err: err}
	}
	return nil
}

// Backup copies path to path+".bak", overwriting an older backup. It returns
// the backup path, or "" when there was nothing to copy.
func Backup(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", &PersistenceError{Path: path, Op: "backup", Err: err}
	}
	defer src.Close()

	target := path + ".bak"
	dst, err := os.Create(target)
	if err != nil {
		return "", &PersistenceError{Path: target, Op: "backup", Err: err}
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", &PersistenceError{Path: target, Op: "backup", Err: err}
	}
	if err := dst.Close(); err != nil {
		return "", &PersistenceError{Path: target, Op: "backup", Err: err}
	}
	return target, nil
}
