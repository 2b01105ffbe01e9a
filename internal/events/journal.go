package events

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var journalPrefix = []byte("ev:")

// JournalSink appends events to a LevelDB journal under sequential keys.
type JournalSink struct {
	mu  sync.Mutex
	db  *leveldb.DB
	seq uint64
}

// OpenJournal opens or creates the journal at path. An empty path keeps the
// journal in memory.
func OpenJournal(path string) (*JournalSink, error) {
	var (
		ldb *leveldb.DB
		err error
	)
	if path == "" {
		ldb, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		ldb, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, err
	}
	sink := &JournalSink{db: ldb}
	iter := ldb.NewIterator(util.BytesPrefix(journalPrefix), nil)
	if iter.Last() {
		sink.seq = binary.BigEndian.Uint64(iter.Key()[len(journalPrefix):])
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		_ = ldb.Close()
		return nil, err
	}
	return sink, nil
}

func (s *JournalSink) Name() string { return "journal" }

func (s *JournalSink) Publish(_ context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Put(journalKey(s.seq+1), payload, nil); err != nil {
		return err
	}
	s.seq++
	return nil
}

func (s *JournalSink) List(_ context.Context, f Filter) ([]Event, error) {
	iter := s.db.NewIterator(util.BytesPrefix(journalPrefix), nil)
	defer iter.Release()
	var out []Event
	for iter.Next() {
		var ev Event
		if err := json.Unmarshal(iter.Value(), &ev); err != nil {
			return nil, err
		}
		if !f.Match(ev) {
			continue
		}
		out = append(out, ev)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, iter.Error()
}

// Len reports how many events the journal holds.
func (s *JournalSink) Len() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Close releases the database.
func (s *JournalSink) Close() error {
	return s.db.Close()
}

func journalKey(seq uint64) []byte {
	key := make([]byte, len(journalPrefix)+8)
	copy(key, journalPrefix)
	binary.BigEndian.PutUint64(key[len(journalPrefix):], seq)
	return key
}
