// Package journal persists every emitted outcome record so the external
// indexer can consume and re-consume the stream idempotently. Records are
// keyed both by sequence (delivery order) and by operation id (dedup key).
package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"

	bolt "go.etcd.io/bbolt"

	"fanmarket/core/events"
	"fanmarket/core/types"
)

var (
	bucketOutcomes    = []byte("outcomes")
	bucketByOperation = []byte("byOperation")
)

// attrOperationID is the attribute every outcome record carries for
// idempotent downstream consumption.
const attrOperationID = "operationId"

// convertible is satisfied by typed events that can render the generic
// payload persisted in the journal.
type convertible interface {
	events.Event
	Event() *types.Event
}

// Journal is a durable append-only log of outcome records.
type Journal struct {
	db     *bolt.DB
	logger *slog.Logger
}

// Open opens (or creates) the journal at the supplied path.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open outcome journal: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketOutcomes); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketByOperation)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init outcome journal: %w", err)
	}
	return &Journal{db: db, logger: logger}, nil
}

// Close releases the underlying store.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Emit implements events.Emitter. Events that cannot render a generic payload
// are ignored; persistence failures are logged rather than propagated because
// the emitting operation has already committed.
func (j *Journal) Emit(evt events.Event) {
	if j == nil || evt == nil {
		return
	}
	payload, ok := evt.(convertible)
	if !ok {
		return
	}
	if err := j.Append(payload.Event()); err != nil {
		j.logger.Error("journal append failed", "eventType", evt.EventType(), "err", err)
	}
}

// Append persists the record unless its operation id was already journaled.
// Re-delivery of an already-seen id is a no-op, which keeps downstream replay
// idempotent.
func (j *Journal) Append(evt *types.Event) error {
	if j == nil || j.db == nil {
		return fmt.Errorf("journal not open")
	}
	if evt == nil {
		return fmt.Errorf("nil event")
	}
	opID := evt.Attributes[attrOperationID]
	if opID == "" {
		return fmt.Errorf("event %q missing operation id", evt.Type)
	}
	encoded, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return j.db.Update(func(tx *bolt.Tx) error {
		byOp := tx.Bucket(bucketByOperation)
		if byOp.Get([]byte(opID)) != nil {
			return nil
		}
		outcomes := tx.Bucket(bucketOutcomes)
		seq, err := outcomes.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		if err := outcomes.Put(key, encoded); err != nil {
			return err
		}
		return byOp.Put([]byte(opID), key)
	})
}

// Get resolves a journaled record by operation id.
func (j *Journal) Get(operationID string) (*types.Event, bool, error) {
	if j == nil || j.db == nil {
		return nil, false, fmt.Errorf("journal not open")
	}
	var evt *types.Event
	err := j.db.View(func(tx *bolt.Tx) error {
		key := tx.Bucket(bucketByOperation).Get([]byte(operationID))
		if key == nil {
			return nil
		}
		raw := tx.Bucket(bucketOutcomes).Get(key)
		if raw == nil {
			return nil
		}
		decoded := new(types.Event)
		if err := json.Unmarshal(raw, decoded); err != nil {
			return err
		}
		evt = decoded
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return evt, evt != nil, nil
}

// Replay streams every journaled record in delivery order. Returning an error
// from the callback stops the replay.
func (j *Journal) Replay(fn func(seq uint64, evt *types.Event) error) error {
	if j == nil || j.db == nil {
		return fmt.Errorf("journal not open")
	}
	if fn == nil {
		return nil
	}
	return j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOutcomes).ForEach(func(k, v []byte) error {
			decoded := new(types.Event)
			if err := json.Unmarshal(v, decoded); err != nil {
				return err
			}
			return fn(binary.BigEndian.Uint64(k), decoded)
		})
	})
}
