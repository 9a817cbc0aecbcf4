package btree

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Kind classifies an engine error.
type Kind int

const (
	KindIO Kind = iota + 1
	KindSerialization
	KindDeserialization
	// KindNodeConflict means a node file already existed where a fresh one
	// was about to be created.
	KindNodeConflict
	// KindInvariant means the engine broke one of its own contracts.
	KindInvariant
	KindConfig
	// KindClosed means the tree was used after Close.
	KindClosed
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "i/o failure"
	case KindSerialization:
		return "serialization failure"
	case KindDeserialization:
		return "deserialization failure"
	case KindNodeConflict:
		return "node conflict"
	case KindInvariant:
		return "invariant violation"
	case KindConfig:
		return "invalid configuration"
	case KindClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Error is the only error type returned by BTree operations.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("btree: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("btree: %s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	// ErrClosed is wrapped in a KindClosed error by operations on a closed tree.
	ErrClosed = errors.New("tree is closed")

	errNeedsSplit = errors.New("node is full")
)

func newError(kind Kind, op, path string, err error) error {
	return &Error{Kind: kind, Op: op, Path: path, Err: errors.WithStack(err)}
}

// KindOf returns the kind of err, or 0 when err did not come from the engine.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err is an engine error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
