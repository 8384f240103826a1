// Package history records REPL inputs in a JSON array file that several
// processes may append to.
package history

import (
	"bytes"
	"errors"
	"io"
	"os"
	"sync"
	"time"
	"unicode"

	"github.com/gofrs/flock"
	"github.com/oarkflow/json"
	"github.com/oarkflow/xid"
)

// Entry is one evaluated REPL input.
type Entry struct {
	ID     string    `json:"id"`
	Time   time.Time `json:"time"`
	Source string    `json:"source"`
	Result string    `json:"result,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// NewEntry stamps source with a fresh id and the current time.
func NewEntry(source, result string, err error) Entry {
	e := Entry{ID: xid.New().String(), Time: time.Now().UTC(), Source: source, Result: result}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

type Option func(*Appender)

// WithoutSync skips fsync after each append.
func WithoutSync() Option {
	return func(a *Appender) {
		a.syncOnAppend = false
	}
}

// Appender keeps the file a valid JSON array after every write. Writes are
// serialized in-process by a mutex and across processes by a lock file.
type Appender struct {
	path           string
	file           *os.File
	fileLock       *flock.Flock
	mu             sync.Mutex
	tailBufferSize int
	syncOnAppend   bool
}

func Open(path string, opts ...Option) (*Appender, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, err
	}
	a := &Appender{
		path:           path,
		file:           f,
		fileLock:       flock.New(path + ".lock"),
		tailBufferSize: 1024,
		syncOnAppend:   true,
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.validate(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return a, nil
}

func (a *Appender) validate() error {
	fi, err := a.file.Stat()
	if err != nil {
		return err
	}
	if fi.Size() == 0 {
		return nil
	}
	head := make([]byte, min(fi.Size(), 16))
	if _, err := a.file.ReadAt(head, 0); err != nil && err != io.EOF {
		return err
	}
	if !bytes.Contains(head, []byte("[")) {
		return errors.New("invalid history file: missing opening bracket")
	}
	return nil
}

// Append adds entries to the end of the array.
func (a *Appender) Append(entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.fileLock.Lock(); err != nil {
		return err
	}
	defer func() {
		_ = a.fileLock.Unlock()
	}()

	encoded := make([][]byte, len(entries))
	for i, e := range entries {
		b, err := json.Marshal(e)
		if err != nil {
			return err
		}
		encoded[i] = b
	}

	fi, err := a.file.Stat()
	if err != nil {
		return err
	}
	prefix := []byte("[\n  ")
	if fi.Size() == 0 {
		if _, err := a.file.Seek(0, io.SeekStart); err != nil {
			return err
		}
	} else {
		if prefix, err = a.truncateTail(fi.Size()); err != nil {
			return err
		}
	}

	data := prefix
	for i, b := range encoded {
		if i > 0 {
			data = append(data, ",\n  "...)
		}
		data = append(data, b...)
	}
	data = append(data, "\n]\n"...)
	if _, err := a.file.Write(data); err != nil {
		return err
	}
	if a.syncOnAppend {
		return a.file.Sync()
	}
	return nil
}

// truncateTail drops the closing bracket and returns the separator the next
// element needs.
func (a *Appender) truncateTail(size int64) ([]byte, error) {
	tailSize := min(int64(a.tailBufferSize), size)
	offset := size - tailSize
	buf := make([]byte, tailSize)
	if _, err := a.file.ReadAt(buf, offset); err != nil && err != io.EOF {
		return nil, err
	}
	last := bytes.LastIndexByte(buf, ']')
	if last == -1 {
		return nil, errors.New("invalid history file: missing closing bracket")
	}
	pos := last - 1
	for pos >= 0 && unicode.IsSpace(rune(buf[pos])) {
		pos--
	}
	if pos < 0 {
		return nil, errors.New("invalid history file: no content before closing bracket")
	}
	if err := a.file.Truncate(offset + int64(pos) + 1); err != nil {
		return nil, err
	}
	if _, err := a.file.Seek(0, io.SeekEnd); err != nil {
		return nil, err
	}
	if buf[pos] == '[' {
		return []byte("\n  "), nil
	}
	return []byte(",\n  "), nil
}

func (a *Appender) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}

// Read returns every entry stored at path. A missing file has no entries.
func Read(path string) ([]Entry, error) {
	lock := flock.New(path + ".lock")
	if err := lock.RLock(); err != nil {
		return nil, err
	}
	defer func() {
		_ = lock.Unlock()
	}()
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(content, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
