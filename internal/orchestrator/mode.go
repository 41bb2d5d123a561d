package orchestrator

import (
	"fmt"
	"strings"
)

// Mode selects an execution strategy.
type Mode string

const (
	// ModeLocal proves and verifies every selected circuit independently.
	ModeLocal Mode = "local"
	// ModeChained runs the selection level by level, feeding each circuit
	// the transformed public outputs of its predecessors.
	ModeChained Mode = "chained"
	// ModeOnChain submits each verified proof to its verifier contract.
	ModeOnChain Mode = "onchain"
	// ModeBatch submits every verified proof in one aggregated call.
	ModeBatch Mode = "batch"
)

// ModeError reports an invalid mode request.
type ModeError struct {
	Reason string
}

func (e *ModeError) Error() string {
	return "invalid execution mode: " + e.Reason
}

// NewMode builds a mode from the flags the UI and CLI expose.
func NewMode(onChain, batch, chained bool) (Mode, error) {
	switch {
	case batch && !onChain:
		return "", &ModeError{Reason: "batch requires on-chain"}
	case chained && onChain:
		return "", &ModeError{Reason: "chained runs verify locally only"}
	case batch:
		return ModeBatch, nil
	case onChain:
		return ModeOnChain, nil
	case chained:
		return ModeChained, nil
	default:
		return ModeLocal, nil
	}
}

// ParseMode parses a mode name. The empty string means ModeLocal.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeLocal, nil
	case ModeLocal, ModeChained, ModeOnChain, ModeBatch:
		return m, nil
	default:
		return "", &ModeError{Reason: fmt.Sprintf("unknown mode '%s'", s)}
	}
}

// OnChain reports whether the mode needs a chain connection.
func (m Mode) OnChain() bool {
	return m == ModeOnChain || m == ModeBatch
}

func (m Mode) String() string { return string(m) }
