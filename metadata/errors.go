package metadata

import (
	"errors"
	"fmt"

	prt "github.com/abcfe/abcfe-metadata/protocol"
)

// ErrNotFound marks "nothing stored at this address". Network clients wrap it
// so callers can tell it apart from transport failures.
var ErrNotFound = errors.New("metadata: not found")

// ErrorKind is the closed set of failure classes the protocol reports
type ErrorKind int

const (
	KindDerivation ErrorKind = iota + 1
	KindValidation
	KindEncryption
	KindDecryption
	KindChain
	KindSigning
	KindVerification
	KindNetwork
	KindConflict          // PUT rejected again after the single retry
	KindInconsistentState // retry found no prior state although the first write assumed none either
	KindSeedUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindDerivation:
		return "derivation"
	case KindValidation:
		return "validation"
	case KindEncryption:
		return "encryption"
	case KindDecryption:
		return "decryption"
	case KindChain:
		return "chain"
	case KindSigning:
		return "signing"
	case KindVerification:
		return "verification"
	case KindNetwork:
		return "network"
	case KindConflict:
		return "conflict"
	case KindInconsistentState:
		return "inconsistent state"
	case KindSeedUnavailable:
		return "seed unavailable"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned by every exported operation of this package
type Error struct {
	Kind ErrorKind
	Op   string
	Type prt.EntryType
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("metadata %s", e.Op)
	if e.Type != 0 {
		msg += fmt.Sprintf(" [%s]", e.Type)
	}
	msg += fmt.Sprintf(": %s error", e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches kind sentinels such as ErrValidation
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind sentinels for errors.Is
var (
	ErrDerivation        = &Error{Kind: KindDerivation}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrEncryption        = &Error{Kind: KindEncryption}
	ErrDecryption        = &Error{Kind: KindDecryption}
	ErrChain             = &Error{Kind: KindChain}
	ErrSigning           = &Error{Kind: KindSigning}
	ErrVerification      = &Error{Kind: KindVerification}
	ErrNetwork           = &Error{Kind: KindNetwork}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrInconsistentState = &Error{Kind: KindInconsistentState}
	ErrSeedUnavailable   = &Error{Kind: KindSeedUnavailable}
)

// KindOf returns the protocol error kind of err, or 0
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind ErrorKind, op string, t prt.EntryType, err error) *Error {
	return &Error{Kind: kind, Op: op, Type: t, Err: err}
}
