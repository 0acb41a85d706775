package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shampis/trialbot/internal/filestore"
)

// ErrNotFound indicates the account has no assignment.
var ErrNotFound = errors.New("assignment not found")

// Ledger is the assignment ledger backed by a JSON document. Every mutation
// loads the whole document, applies the change and rewrites it inside the
// file's exclusive section. Construct one per database file and share it.
type Ledger struct {
	file   *filestore.File
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the clock used to stamp assignments.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// New returns a Ledger for the database file at path.
func New(path string, logger *slog.Logger, opts ...Option) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{
		file:   filestore.New(path, 0600),
		logger: logger.With("component", "ledger", "path", path),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.file.Path()
}

// Load reads the ledger. A missing, empty, unparseable or unreadable file
// yields an empty ledger; the problem is logged and never returned.
func (l *Ledger) Load() *Document {
	doc, err := l.load()
	if err != nil {
		l.logger.Error("reading ledger failed, treating it as empty", "error", err)
		return newDocument()
	}
	return doc
}

// load reads the document. Only I/O failures are returned: a missing, empty
// or corrupt file is logged and loads as an empty ledger. Mutations must not
// rewrite the file after an I/O failure, because the empty document would
// replace assignments that still exist on disk.
func (l *Ledger) load() (*Document, error) {
	data, err := l.file.Read()
	if err != nil {
		if errors.Is(err, filestore.ErrNotExist) {
			l.logger.Warn("ledger file not found")
			return newDocument(), nil
		}
		return nil, err
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		l.logger.Warn("ledger file is empty")
		return newDocument(), nil
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		l.logger.Warn("ledger is corrupt, starting empty", "error", err)
		return newDocument(), nil
	}
	if doc.Users == nil {
		doc.Users = map[string]Record{}
	}
	for id, rec := range doc.Users {
		if !rec.AssignedAt.Valid() {
			l.logger.Warn("unrecognized assigned_at, keeping it as is", "account", id, "assigned_at", rec.AssignedAt.Raw())
		}
	}
	return &doc, nil
}

// Save rewrites the whole ledger. Failures are logged at error level and
// returned; the claim workflow treats persistence as best-effort and ignores
// the result.
func (l *Ledger) Save(doc *Document) error {
	err := l.file.Update(func() error {
		return l.saveLocked(doc)
	})
	if err != nil {
		l.logger.Error("saving ledger failed", "error", err)
	}
	return err
}

// saveLocked writes the document; the caller holds the file lock.
func (l *Ledger) saveLocked(doc *Document) error {
	if doc == nil {
		doc = newDocument()
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return l.file.Write(bytes.TrimRight(buf.Bytes(), "\n"))
}

// Has reports whether accountID already holds a key.
func (l *Ledger) Has(accountID string) bool {
	_, ok := l.Load().Users[accountID]
	return ok
}

// Get returns the record for accountID.
func (l *Ledger) Get(accountID string) (Record, bool) {
	rec, ok := l.Load().Users[accountID]
	return rec, ok
}

// Len returns the number of assignments.
func (l *Ledger) Len() int {
	return len(l.Load().Users)
}

// List returns every assignment ordered by assignment time, oldest first.
func (l *Ledger) List() []Entry {
	doc := l.Load()
	entries := make([]Entry, 0, len(doc.Users))
	for id, rec := range doc.Users {
		entries = append(entries, Entry{AccountID: id, Record: rec})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].AssignedAt.Equal(entries[j].AssignedAt.Time) {
			return entries[i].AssignedAt.Before(entries[j].AssignedAt.Time)
		}
		return entries[i].AccountID < entries[j].AccountID
	})
	return entries
}

// Commit records that accountID received key. An existing record for the
// account is overwritten. The returned record is what was committed even if
// it could not be persisted.
func (l *Ledger) Commit(accountID, username, key string) Record {
	rec := Record{
		Username:   username,
		Key:        key,
		AssignedAt: Stamp(l.now()),
	}
	err := l.file.Update(func() error {
		doc, err := l.load()
		if err != nil {
			return err
		}
		doc.Users[accountID] = rec
		return l.saveLocked(doc)
	})
	if err != nil {
		l.logger.Error("committing assignment failed", "account", accountID, "key", key, "error", err)
	}
	return rec
}

// Remove deletes the record for accountID and returns it. It returns
// ErrNotFound when the account has no record.
func (l *Ledger) Remove(accountID string) (Record, error) {
	var (
		rec   Record
		found bool
	)
	err := l.file.Update(func() error {
		doc, err := l.load()
		if err != nil {
			return err
		}
		rec, found = doc.Users[accountID]
		if !found {
			return nil
		}
		delete(doc.Users, accountID)
		return l.saveLocked(doc)
	})
	if err != nil {
		l.logger.Error("removing assignment failed", "account", accountID, "error", err)
		return Record{}, err
	}
	if !found {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, accountID)
	}
	return rec, nil
}
