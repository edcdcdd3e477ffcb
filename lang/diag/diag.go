// Package diag implements blikk's diagnostic model (spec.md §4.F): errors
// and hints anchored at a source offset, a collecting Bag with the
// first-error-then-hints suppression rule and poisoned-symbol tracking, and
// Levenshtein-distance "did you mean" suggestions. Rendering (column
// computation, tab alignment, colorized output) is deliberately left to the
// host, per spec.md §1 non-goals; this package exposes only the model and a
// plain-text Format helper.
package diag

import (
	"fmt"
	"sort"

	"golang.org/x/exp/slices"

	"github.com/blikk-lang/blikk/lang/token"
)

// Kind distinguishes a hard error from a secondary, informational hint.
type Kind uint8

const (
	KindError Kind = iota
	KindHint
)

// Diagnostic is one reported problem or hint, anchored at a source offset.
type Diagnostic struct {
	Kind Kind
	File string
	Pos  token.Pos
	Msg  string
}

// New formats a Diagnostic from a printf-style format and arguments.
func New(kind Kind, file string, pos token.Pos, format string, args ...any) Diagnostic {
	return Diagnostic{Kind: kind, File: file, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Format renders d as "filename(line:col): Error: message" (or "Hint:" for
// hints), matching spec.md §7's user-visible format, without attempting to
// echo the source line or align a caret (left to the host renderer).
func (d Diagnostic) Format() string {
	line, col := d.Pos.LineCol()
	prefix := "Error"
	if d.Kind == KindHint {
		prefix = "Hint"
	}
	return fmt.Sprintf("%s(%d:%d): %s: %s", d.File, line, col, prefix, d.Msg)
}

// Bag collects diagnostics for a single compile unit, implementing the
// "first error in a statement converts subsequent errors to hints, and a
// failed prototype poisons further references to its symbol" rules from
// spec.md §4.D/§7.
type Bag struct {
	diags      []Diagnostic
	suppressed bool            // first error already reported for the current statement
	poisoned   map[string]bool // names whose declaration failed
}

// NewBag creates an empty Bag.
func NewBag() *Bag {
	return &Bag{poisoned: make(map[string]bool)}
}

// Errorf reports an error at pos. If this is not the first error reported
// since the last call to EndStatement, it is downgraded to a hint so that a
// single malformed statement does not cascade into a wall of errors.
func (b *Bag) Errorf(file string, pos token.Pos, format string, args ...any) Diagnostic {
	kind := KindError
	if b.suppressed {
		kind = KindHint
	}
	d := New(kind, file, pos, format, args...)
	b.diags = append(b.diags, d)
	b.suppressed = true
	return d
}

// Hintf always reports at KindHint, regardless of suppression state; used
// for secondary messages anchored at a definition site.
func (b *Bag) Hintf(file string, pos token.Pos, format string, args ...any) {
	b.diags = append(b.diags, New(KindHint, file, pos, format, args...))
}

// EndStatement resets the suppression latch: the next Errorf call for a new
// statement reports a full KindError again.
func (b *Bag) EndStatement() {
	b.suppressed = false
}

// Poison marks name's declaration as having failed; subsequent references
// to it should be silently ignored by the caller rather than producing a
// cascade of "unknown identifier" errors.
func (b *Bag) Poison(name string) {
	b.poisoned[name] = true
}

// Poisoned reports whether name was poisoned by a failed prototype.
func (b *Bag) Poisoned(name string) bool {
	return b.poisoned[name]
}

// HasErrors reports whether any KindError diagnostic was reported.
func (b *Bag) HasErrors() bool {
	for _, d := range b.diags {
		if d.Kind == KindError {
			return true
		}
	}
	return false
}

// Diagnostics returns every diagnostic reported so far, in report order.
func (b *Bag) Diagnostics() []Diagnostic {
	return b.diags
}

// Err returns a single error aggregating every reported diagnostic's
// Format(), sorted by SortByPos, or nil if there were none. It implements
// Unwrap() []error so callers may use errors.Is/As over individual
// diagnostics.
func (b *Bag) Err() error {
	if len(b.diags) == 0 {
		return nil
	}
	diags := slices.Clone(b.diags)
	SortByPos(diags)
	return &Error{diags: diags}
}

// Error is the aggregate error type returned by Bag.Err.
type Error struct {
	diags []Diagnostic
}

func (e *Error) Error() string {
	if len(e.diags) == 1 {
		return e.diags[0].Format()
	}
	return fmt.Sprintf("%s (and %d more)", e.diags[0].Format(), len(e.diags)-1)
}

// Unwrap exposes the individual diagnostics as a slice of errors, matching
// the pattern of go/scanner.ErrorList, which the teacher repository
// re-exports as-is for the same purpose (see SPEC_FULL.md's AMBIENT STACK).
func (e *Error) Unwrap() []error {
	errs := make([]error, len(e.diags))
	for i, d := range e.diags {
		errs[i] = diagError{d}
	}
	return errs
}

type diagError struct{ d Diagnostic }

func (e diagError) Error() string { return e.d.Format() }

// SortByPos sorts diagnostics by (file, line, col), used before final
// reporting so that diagnostics discovered out of source order (e.g. a
// preparse failure followed by a later body error) are shown in a sensible
// order.
func SortByPos(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].File != diags[j].File {
			return diags[i].File < diags[j].File
		}
		li, ci := diags[i].Pos.LineCol()
		lj, cj := diags[j].Pos.LineCol()
		if li != lj {
			return li < lj
		}
		return ci < cj
	})
}
