// Package ledger journals pool events for audit and replay. Every event is
// appended to a JSON file; when a database is configured the event is also
// inserted into the pool_events table. Journal failures are logged and never
// surfaced to the operation that produced the event.
package ledger

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nolossgames/savings-pool-server/pool"
)

// Journal implements pool.Sink over a file store and an optional database.
type Journal struct {
	files *FileStore
	log   zerolog.Logger
}

func NewJournal(dataDir string, log zerolog.Logger) *Journal {
	return &Journal{
		files: NewFileStore(dataDir),
		log:   log.With().Str("component", "ledger").Logger(),
	}
}

// Emit records the event. A pool operation has already committed by the time
// its event reaches the journal, so errors here are logged, not returned.
func (j *Journal) Emit(e pool.Event) {
	if err := j.files.Append(e); err != nil {
		j.log.Error().Err(err).Str("event", string(e.Type)).Msg("file journal append failed")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := insertEvent(ctx, e); err != nil {
		j.log.Error().Err(err).Str("event", string(e.Type)).Msg("db journal insert failed")
	}
}

// Events returns the journaled history, oldest first.
func (j *Journal) Events() ([]pool.Event, error) {
	return j.files.Events()
}

// PlayerEvents returns the journaled history for one address, oldest first.
func (j *Journal) PlayerEvents(address string) ([]pool.Event, error) {
	all, err := j.files.Events()
	if err != nil {
		return nil, err
	}
	var out []pool.Event
	for _, e := range all {
		if e.Player == address {
			out = append(out, e)
		}
	}
	return out, nil
}
