package heap

import "fmt"

// ErrOOM is returned (optionally wrapped via github.com/pkg/errors) when
// the substrate Arena cannot satisfy an Extend request. It is the only
// failure mode internal to the core - see §4.F/§7 of the design.
var ErrOOM = fmt.Errorf("heap: substrate exhausted")

// ErrZeroSize is returned, together with a zero Ptr, by Allocate when the
// requested size is zero or negative, by CallocAllocate when either
// argument is zero, and by Resize when it is handed a zero Ptr and such a
// size. Resize of a live Ptr to size zero releases it and returns a zero
// Ptr with a nil error. The value is exported so callers can tell the
// empty cases (OOM vs. zero-size) apart.
var ErrZeroSize = fmt.Errorf("heap: zero-size request")

// ErrINVAL reports a caller-contract violation detected at a boundary
// check: CallocAllocate returns it for a negative argument or when
// nmemb*size overflows int. Mirrors lldb.ErrINVAL's shape: a short message plus the
// offending value.
type ErrINVAL struct {
	Msg string
	Arg interface{}
}

func (e *ErrINVAL) Error() string {
	return fmt.Sprintf("%s: %v", e.Msg, e.Arg)
}

// ErrILSEQ reports an invariant violation found by CheckHeap. Kind
// identifies which of I1-I7 (see heap/check.go) was violated.
type ErrILSEQ struct {
	Kind   string
	Off    int
	Detail string
}

func (e *ErrILSEQ) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("heap corruption (%s) at offset %#x", e.Kind, e.Off)
	}
	return fmt.Sprintf("heap corruption (%s) at offset %#x: %s", e.Kind, e.Off, e.Detail)
}
