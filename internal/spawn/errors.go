package spawn

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest matches every *ValidationError.
	ErrInvalidRequest = errors.New("invalid process request")
	// ErrSpawn matches process errors where the child could not be started
	// or its output could not be read.
	ErrSpawn = errors.New("process spawn failed")
	// ErrSignaled matches process errors where the child was killed by a signal.
	ErrSignaled = errors.New("process terminated by signal")
	// ErrNonZeroExit matches process errors where the child exited with a
	// non-zero code.
	ErrNonZeroExit = errors.New("process exited with non-zero code")
)

// Kind classifies how a run ended.
type Kind int

const (
	Succeeded Kind = iota
	SpawnFailure
	AbnormalTermination
	NonZeroExit
)

func (k Kind) String() string {
	switch k {
	case Succeeded:
		return "succeeded"
	case SpawnFailure:
		return "spawn_failed"
	case AbnormalTermination:
		return "signaled"
	case NonZeroExit:
		return "exited_nonzero"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for _, k := range []Kind{Succeeded, SpawnFailure, AbnormalTermination, NonZeroExit} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown run status %q", s)
}

// ValidationError is returned synchronously by Run when the request is
// malformed. No process has been created when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// ProcessError describes a run that did not end with exit code 0.
// ExitCode or Signal is always set.
type ProcessError struct {
	Kind     Kind
	Path     string
	ExitCode *int
	Signal   string
	// Err is the underlying OS error for SpawnFailure.
	Err error
}

func (e *ProcessError) Error() string {
	switch e.Kind {
	case SpawnFailure:
		return fmt.Sprintf("failure spawning or reading %s: %v", e.Path, e.Err)
	case AbnormalTermination:
		return fmt.Sprintf("%s terminated by signal %s", e.Path, e.Signal)
	default:
		code := -1
		if e.ExitCode != nil {
			code = *e.ExitCode
		}
		return fmt.Sprintf("%s exited with code %d", e.Path, code)
	}
}

func (e *ProcessError) Unwrap() error { return e.Err }

func (e *ProcessError) Is(target error) bool {
	switch target {
	case ErrSpawn:
		return e.Kind == SpawnFailure
	case ErrSignaled:
		return e.Kind == AbnormalTermination
	case ErrNonZeroExit:
		return e.Kind == NonZeroExit
	default:
		return false
	}
}

// Code returns the exit code, or -1 when the process has none.
func (e *ProcessError) Code() int {
	if e.ExitCode == nil {
		return -1
	}
	return *e.ExitCode
}

// SignalNumber returns the number of the terminating signal, or 0 when the
// process was not signaled or the name is unknown on this platform.
func (e *ProcessError) SignalNumber() int {
	if e.Signal == "" {
		return 0
	}
	return signalNumber(e.Signal)
}
