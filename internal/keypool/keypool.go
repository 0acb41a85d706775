// Package keypool manages the ordered pool of unclaimed trial keys.
//
// The pool is a flat UTF-8 text file with one key per line. Lines starting
// with '#' and blank lines are ignored on read and are not preserved on
// write. Keys are consumed from the front and a key whose delivery failed is
// reinserted at the front, so the file order is the order in which claimants
// are served.
package keypool

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"

	"github.com/shampis/trialbot/internal/filestore"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// Pool is the key pool store. Construct one per keys file with New and share
// it; concurrent use is safe.
type Pool struct {
	file   *filestore.File
	logger *slog.Logger
}

// New returns a Pool backed by the file at path.
func New(path string, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		file:   filestore.New(path, 0600),
		logger: logger.With("component", "keypool", "path", path),
	}
}

// Path returns the keys file path.
func (p *Pool) Path() string {
	return p.file.Path()
}

// List returns the available keys in order. A missing or unreadable file
// yields an empty list.
func (p *Pool) List() []string {
	return p.read()
}

// Count returns the number of available keys.
func (p *Pool) Count() int {
	return len(p.read())
}

// Reserve removes and returns the first key. It returns false when the pool
// is empty, when the keys file could not be read, or when the shortened pool
// could not be written back; in those cases the file is left untouched and no
// key is handed out.
func (p *Pool) Reserve() (string, bool) {
	var key string
	err := p.file.Update(func() error {
		keys, err := p.load()
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return nil
		}
		if err := p.write(keys[1:]); err != nil {
			return err
		}
		key = keys[0]
		return nil
	})
	if err != nil {
		p.logger.Error("reserving key failed", "error", err)
		return "", false
	}
	return key, key != ""
}

// Return puts key back at the front of the pool. It undoes a Reserve whose
// delivery failed. If the file cannot be read or written the pool is left as
// it is and the key is logged so it can be restored by hand.
func (p *Pool) Return(key string) {
	err := p.file.Update(func() error {
		keys, err := p.load()
		if err != nil {
			return err
		}
		return p.write(append([]string{key}, keys...))
	})
	if err != nil {
		p.logger.Error("returning key to pool failed", "key", key, "error", err)
	}
}

// Append adds keys to the back of the pool and returns the new pool size.
// Nothing is written when the current pool cannot be read.
func (p *Pool) Append(keys []string) (int, error) {
	var total int
	err := p.file.Update(func() error {
		current, err := p.load()
		if err != nil {
			return err
		}
		all := append(current, keys...)
		if err := p.write(all); err != nil {
			return err
		}
		total = len(all)
		return nil
	})
	if err != nil {
		p.logger.Error("appending keys failed", "count", len(keys), "error", err)
		return 0, err
	}
	return total, nil
}

// read is load for callers that only look: an unreadable file counts as empty.
func (p *Pool) read() []string {
	keys, err := p.load()
	if err != nil {
		p.logger.Error("reading keys file failed", "error", err)
		return nil
	}
	return keys
}

// load reads the pool. A missing file is an empty pool; any other read
// failure is returned so that mutations never rewrite a file they could not
// read.
func (p *Pool) load() ([]string, error) {
	data, err := p.file.Read()
	if err != nil {
		if errors.Is(err, filestore.ErrNotExist) {
			p.logger.Warn("keys file not found")
			return nil, nil
		}
		return nil, err
	}
	if _, _, err := transform.Bytes(encoding.UTF8Validator, data); err != nil {
		p.logger.Warn("keys file is not valid UTF-8, keeping keys byte for byte", "error", err)
	}
	return Parse(data), nil
}

func (p *Pool) write(keys []string) error {
	return p.file.Write([]byte(strings.Join(keys, "\n")))
}

var byteOrderMark = []byte("\ufeff")

// Parse extracts keys from the contents of a keys file. A leading byte-order
// mark is dropped, every line is trimmed, and blank and '#' lines are skipped.
// Other bytes are kept as they are, valid UTF-8 or not.
func Parse(data []byte) []string {
	data = bytes.TrimPrefix(data, byteOrderMark)

	var keys []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys = append(keys, line)
	}
	return keys
}
