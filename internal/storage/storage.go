package storage

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

const (
	commandHistoryLimit int = 20
	historyPrefix           = "cmd:"
)

type Storage struct {
	db  *pebble.DB
	seq atomic.Uint64
	now func() time.Time
}

type CommandHistoryRecord struct {
	GuildID     string    `json:"guild_id"`
	GuildName   string    `json:"guild_name"`
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Command     string    `json:"command"`
	Param       string    `json:"param"`
	Datetime    time.Time `json:"datetime"`
}

// New opens (or creates) the store at path.
func New(path string) (*Storage, error) {
	return open(path, nil)
}

// NewInMemory returns a store that lives only as long as the process.
func NewInMemory() (*Storage, error) {
	return open("store", vfs.NewMem())
}

func open(path string, fs vfs.FS) (*Storage, error) {
	opts := &pebble.Options{}
	if fs != nil {
		opts.FS = fs
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", path, err)
	}
	return &Storage{db: db, now: time.Now}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// guildPrefix bounds every history key of a guild. DMs use "@me".
func guildPrefix(guildID string) []byte {
	if guildID == "" {
		guildID = "@me"
	}
	return []byte(historyPrefix + guildID + ":")
}

// upperBound is the smallest key greater than every key with prefix p.
func upperBound(p []byte) []byte {
	end := append([]byte(nil), p...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// SetCommand appends a command invocation to the guild's history.
func (s *Storage) SetCommand(guildID string, rec CommandHistoryRecord) error {
	if rec.Datetime.IsZero() {
		rec.Datetime = s.now()
	}
	rec.GuildID = guildID

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal command record: %w", err)
	}

	key := fmt.Sprintf("%s%020d-%06d", guildPrefix(guildID), rec.Datetime.UTC().UnixNano(), s.seq.Add(1)%1_000_000)
	if err := s.db.Set([]byte(key), data, pebble.Sync); err != nil {
		return fmt.Errorf("store command record: %w", err)
	}
	return nil
}

// GetCommandsHistory returns up to limit of the guild's most recent
// commands, oldest first. A limit of zero or less uses the default.
func (s *Storage) GetCommandsHistory(guildID string, limit int) ([]CommandHistoryRecord, error) {
	if limit <= 0 {
		limit = commandHistoryLimit
	}
	prefix := guildPrefix(guildID)

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upperBound(prefix)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []CommandHistoryRecord
	for ok := iter.Last(); ok && len(out) < limit; ok = iter.Prev() {
		var rec CommandHistoryRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("decode command record %q: %w", iter.Key(), err)
		}
		out = append(out, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// PruneCommandsHistory keeps the newest keep records of every guild and
// deletes the rest. It returns how many records were removed.
func (s *Storage) PruneCommandsHistory(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	prefix := []byte(historyPrefix)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upperBound(prefix)})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	batch := s.db.NewBatch()
	defer batch.Close()

	removed := 0
	seen := make(map[string]int)
	for ok := iter.Last(); ok; ok = iter.Prev() {
		guild := guildOf(iter.Key())
		seen[guild]++
		if seen[guild] <= keep {
			continue
		}
		if err := batch.Delete(append([]byte(nil), iter.Key()...), nil); err != nil {
			return 0, err
		}
		removed++
	}
	if err := iter.Error(); err != nil {
		return 0, err
	}
	if removed == 0 {
		return 0, nil
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, err
	}
	return removed, nil
}

// guildOf extracts the guild segment of a history key.
func guildOf(key []byte) string {
	rest := key[len(historyPrefix):]
	for i, b := range rest {
		if b == ':' {
			return string(rest[:i])
		}
	}
	return string(rest)
}
