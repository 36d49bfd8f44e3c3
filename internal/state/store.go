package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"discosync/internal/domain"
)

const (
	currentRecordName  = "generation.json"
	previousRecordName = "generation.prev.json"
)

// Store holds the generation records across runs. At any time "current" is
// the last completed generation and "previous" the one before it; Commit
// rotates current to previous only once the new record is marshalled, and
// the new record replaces current through a durable backend write, so a
// crash mid-run never loses the protection data cleanup depends on.
type Store struct {
	backend Backend
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// LoadCurrent returns the last committed generation record, or nil when no
// run has completed yet. Records written by older versions without the
// on-the-fly field load with that field defaulted to empty.
func (s *Store) LoadCurrent(ctx context.Context) (*domain.GenerationRecord, error) {
	return s.load(ctx, currentRecordName)
}

// LoadPrevious returns the generation before the current one, if any.
func (s *Store) LoadPrevious(ctx context.Context) (*domain.GenerationRecord, error) {
	return s.load(ctx, previousRecordName)
}

func (s *Store) load(ctx context.Context, name string) (*domain.GenerationRecord, error) {
	data, err := s.backend.Read(ctx, name)
	if errors.Is(err, ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var record domain.GenerationRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode generation record %s: %w", name, err)
	}
	record.ApplyDefaults()
	return &record, nil
}

// Commit persists a finalized generation record, demoting the outgoing
// current record to previous first. Callers must only commit after the full
// run has completed.
func (s *Store) Commit(ctx context.Context, record *domain.GenerationRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode generation record: %w", err)
	}

	if err := s.backend.Rename(ctx, currentRecordName, previousRecordName); err != nil {
		return err
	}
	if err := s.backend.Write(ctx, currentRecordName, data); err != nil {
		return err
	}
	return nil
}
