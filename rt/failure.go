package rt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Failure kinds
// ---------------------------------------------------------------------------

// Kind identifies a failure raised by the runtime.
type Kind int

const (
	NullDereference Kind = iota + 1
	InvalidCast
	IllegalMonitorState
	ArithmeticFailure
)

// Sentinel errors, one per Kind. A *Failure unwraps to the sentinel of its
// kind, so callers test with errors.Is.
var (
	ErrNullDereference     = errors.New("null dereference")
	ErrInvalidCast         = errors.New("invalid cast")
	ErrIllegalMonitorState = errors.New("illegal monitor state")
	ErrArithmetic          = errors.New("arithmetic failure")
)

// ErrMalformedNesting is the contract violation panicked by invariant-checking
// runtimes when frames are not strictly nested.
var ErrMalformedNesting = errors.New("rt: malformed frame nesting")

func (k Kind) String() string {
	switch k {
	case NullDereference:
		return "NullDereference"
	case InvalidCast:
		return "InvalidCast"
	case IllegalMonitorState:
		return "IllegalMonitorState"
	case ArithmeticFailure:
		return "ArithmeticFailure"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case NullDereference:
		return ErrNullDereference
	case InvalidCast:
		return ErrInvalidCast
	case IllegalMonitorState:
		return ErrIllegalMonitorState
	case ArithmeticFailure:
		return ErrArithmetic
	}
	return nil
}

// ---------------------------------------------------------------------------
// Failure: the value carried by unwinding
// ---------------------------------------------------------------------------

// Failure is panicked by Raise and recovered by Try.
type Failure struct {
	Kind    Kind
	Message string
	Cause   error

	// Call-site context, empty when raised without a frame.
	Thread uuid.UUID
	Frame  string
	Trace  []string // frame names from the sentinel's child to the raising frame
}

func (f *Failure) Error() string {
	var b strings.Builder
	if s := f.Kind.sentinel(); s != nil {
		b.WriteString(s.Error())
	} else {
		b.WriteString(f.Kind.String())
	}
	if f.Message != "" {
		b.WriteString(": ")
		b.WriteString(f.Message)
	}
	if f.Frame != "" {
		b.WriteString(" (in ")
		b.WriteString(f.Frame)
		b.WriteString(")")
	}
	return b.String()
}

func (f *Failure) Unwrap() []error {
	var errs []error
	if s := f.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if f.Cause != nil {
		errs = append(errs, f.Cause)
	}
	return errs
}

// StackTrace renders the captured chain, innermost frame first.
func (f *Failure) StackTrace() string {
	var b strings.Builder
	for i := len(f.Trace) - 1; i >= 0; i-- {
		b.WriteString("\tat ")
		b.WriteString(f.Trace[i])
		b.WriteByte('\n')
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Raise / Try
// ---------------------------------------------------------------------------

// Raise originates a failure and transfers control to the nearest enclosing
// Try. It never returns. frame may be nil when no call-site context exists.
func Raise(kind Kind, frame *Frame, format string, args ...any) {
	raise(&Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}, frame)
}

// RaiseCause is Raise with an underlying error attached.
func RaiseCause(kind Kind, frame *Frame, cause error) {
	raise(&Failure{Kind: kind, Message: cause.Error(), Cause: cause}, frame)
}

func raise(f *Failure, frame *Frame) {
	if frame != nil && frame.Live() {
		f.Thread = frame.thread.id
		f.Frame = frame.name
		f.Trace = frame.thread.traceTo(frame.index)
	}
	if log.AllowLevel(commonlog.Debug) {
		log.Debugf("raise %s: %s", f.Kind, f.Error())
	}
	panic(f)
}

// Try runs body and recovers any Failure it raises, returning it as an error.
// Frames nested inside frame that are still linked when the failure reaches
// Try are left before Try returns, so the chain ends at frame again.
// Panics that are not failures propagate unchanged.
func Try(frame *Frame, body func()) (err error) {
	depth := -1
	if frame != nil {
		depth = frame.index
	}
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		f, ok := r.(*Failure)
		if !ok {
			panic(r)
		}
		if depth >= 0 && frame.Live() {
			frame.thread.truncate(depth)
		}
		err = f
	}()
	body()
	return nil
}

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
