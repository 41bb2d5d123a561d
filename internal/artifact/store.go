package artifact

import (
	"context"
	"fmt"

	"github.com/specialistvlad/zkparallel/internal/circuit"
)

// Kind names one of the four artifacts a circuit has.
type Kind string

const (
	KindInput           Kind = "input"
	KindProgram         Kind = "program"
	KindProvingKey      Kind = "proving_key"
	KindVerificationKey Kind = "verification_key"
)

// Store fetches circuit artifacts.
type Store interface {
	FetchInput(ctx context.Context, locs circuit.Locations) ([]byte, error)
	FetchProgram(ctx context.Context, locs circuit.Locations) ([]byte, error)
	FetchProvingKey(ctx context.Context, locs circuit.Locations) ([]byte, error)
	FetchVerificationKey(ctx context.Context, locs circuit.Locations) ([]byte, error)
}

// FetchError reports which artifact could not be read.
type FetchError struct {
	Kind     Kind
	Location string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s '%s': %v", e.Kind, e.Location, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// locationOf picks the location for kind.
func locationOf(locs circuit.Locations, kind Kind) string {
	switch kind {
	case KindInput:
		return locs.Input
	case KindProgram:
		return locs.Program
	case KindProvingKey:
		return locs.ProvingKey
	case KindVerificationKey:
		return locs.VerificationKey
	}
	return ""
}

// fetcher is the single primitive concrete stores implement.
type fetcher func(ctx context.Context, kind Kind, location string) ([]byte, error)

// kindStore adapts a fetcher to the Store interface.
type kindStore struct {
	fetch fetcher
}

func (s kindStore) get(ctx context.Context, locs circuit.Locations, kind Kind) ([]byte, error) {
	loc := locationOf(locs, kind)
	if loc == "" {
		return nil, &FetchError{Kind: kind, Location: loc, Err: fmt.Errorf("no location configured")}
	}
	data, err := s.fetch(ctx, kind, loc)
	if err != nil {
		return nil, &FetchError{Kind: kind, Location: loc, Err: err}
	}
	return data, nil
}

func (s kindStore) FetchInput(ctx context.Context, locs circuit.Locations) ([]byte, error) {
	return s.get(ctx, locs, KindInput)
}

func (s kindStore) FetchProgram(ctx context.Context, locs circuit.Locations) ([]byte, error) {
	return s.get(ctx, locs, KindProgram)
}

func (s kindStore) FetchProvingKey(ctx context.Context, locs circuit.Locations) ([]byte, error) {
	return s.get(ctx, locs, KindProvingKey)
}

func (s kindStore) FetchVerificationKey(ctx context.Context, locs circuit.Locations) ([]byte, error) {
	return s.get(ctx, locs, KindVerificationKey)
}
