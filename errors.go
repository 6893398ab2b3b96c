package bowgo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/bowgo/rank"
	"github.com/hupe1980/bowgo/tfidf"
	"github.com/hupe1980/bowgo/vocab"
)

var (
	// ErrEmptyVocabulary is returned when a catalog is built over a
	// vocabulary with no words.
	ErrEmptyVocabulary = errors.New("vocabulary has no words")

	// ErrNoDescriptorSource is returned by QueryPath when neither a
	// descriptor cache nor a descriptor source is configured.
	ErrNoDescriptorSource = errors.New("no descriptor source configured")
)

// ErrDimensionMismatch indicates a descriptor or term-frequency vector of the
// wrong width for the catalog's vocabulary.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrDuplicateKey indicates an insert under a key the catalog already holds.
type ErrDuplicateKey struct {
	Key string
}

func (e *ErrDuplicateKey) Error() string {
	return fmt.Sprintf("duplicate key: %q", e.Key)
}

// ErrKeyNotFound indicates an operation on a key the catalog does not hold.
type ErrKeyNotFound struct {
	Key string
}

func (e *ErrKeyNotFound) Error() string {
	return fmt.Sprintf("key not found: %q", e.Key)
}

// ErrReservedKey indicates a document key that collides with the reserved
// keys of the snapshot layout.
type ErrReservedKey struct {
	Key string
}

func (e *ErrReservedKey) Error() string {
	return fmt.Sprintf("reserved key: %q", e.Key)
}

// ErrKeySetMismatch indicates inputs or rankings covering different key sets
// where identical sets are required.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrKeySetMismatch struct {
	Missing []string
	Extra   []string
	cause   error
}

func (e *ErrKeySetMismatch) Error() string {
	return fmt.Sprintf("key set mismatch: missing [%s], extra [%s]",
		strings.Join(e.Missing, " "), strings.Join(e.Extra, " "))
}

func (e *ErrKeySetMismatch) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, vocab.ErrEmptyVocabulary) {
		return fmt.Errorf("%w: %w", ErrEmptyVocabulary, err)
	}

	// Dimension normalization across subpackages.
	var vdm *vocab.ErrDimensionMismatch
	if errors.As(err, &vdm) {
		return &ErrDimensionMismatch{Expected: vdm.Expected, Actual: vdm.Actual, cause: err}
	}
	var tdm *tfidf.ErrDimensionMismatch
	if errors.As(err, &tdm) {
		return &ErrDimensionMismatch{Expected: tdm.Expected, Actual: tdm.Actual, cause: err}
	}

	var ksm *rank.ErrKeySetMismatch
	if errors.As(err, &ksm) {
		return &ErrKeySetMismatch{Missing: ksm.Missing, Extra: ksm.Extra, cause: err}
	}

	return err
}
