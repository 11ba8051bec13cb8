package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the network lifecycle the error occurred
type Phase string

const (
	PhaseConfig    Phase = "config"    // configuration loading
	PhaseProvision Phase = "provision" // device pool construction
	PhaseCompile   Phase = "compile"   // graph compilation at registration
	PhaseDispatch  Phase = "dispatch"  // run admission and routing
	PhaseExecute   Phase = "execute"   // device-side execution
)

// Kind categorizes the error
type Kind string

const (
	KindDuplicateName  Kind = "duplicate_name"
	KindCompileFailure Kind = "compile_failure"
	KindNotFound       Kind = "not_found"
	KindExecution      Kind = "execution"
	KindInvalidInput   Kind = "invalid_input"
	KindDeviceFault    Kind = "device_fault"
	KindCodegen        Kind = "codegen"
	KindUnsupported    Kind = "unsupported"
)

// Error is the structured error type used throughout the runtime
type Error struct {
	Cause   error
	Phase   Phase
	Kind    Kind
	Network string
	Device  string
	Detail  string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Network != "" {
		b.WriteString(" network ")
		b.WriteString(fmt.Sprintf("%q", e.Network))
	}
	if e.Device != "" {
		b.WriteString(" on ")
		b.WriteString(e.Device)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Two errors match when
// their Phase and Kind agree; Network, Device and Detail are ignored so
// callers can test categories with sentinel values.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Network sets the network name
func (b *Builder) Network(name string) *Builder {
	b.err.Network = name
	return b
}

// Device sets the device description
func (b *Builder) Device(desc string) *Builder {
	b.err.Device = desc
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// DuplicateName reports an addNetwork against an already registered name.
func DuplicateName(network string) *Error {
	return &Error{
		Phase:   PhaseCompile,
		Kind:    KindDuplicateName,
		Network: network,
		Detail:  "name already registered",
	}
}

// CompileFailure reports a backend rejecting a graph at registration time.
func CompileFailure(network, device string, cause error) *Error {
	return &Error{
		Phase:   PhaseCompile,
		Kind:    KindCompileFailure,
		Network: network,
		Device:  device,
		Cause:   cause,
	}
}

// NotFound reports a run against a name that is not registered.
func NotFound(network string) *Error {
	return &Error{
		Phase:   PhaseDispatch,
		Kind:    KindNotFound,
		Network: network,
		Detail:  "network not registered",
	}
}

// Execution reports a device-side runtime failure.
func Execution(network, device string, cause error) *Error {
	return &Error{
		Phase:   PhaseExecute,
		Kind:    KindExecution,
		Network: network,
		Device:  device,
		Cause:   cause,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// DeviceFault reports a fault in the device backend itself, as opposed
// to a failure of the submitted work.
func DeviceFault(device string, cause error) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindDeviceFault,
		Device: device,
		Cause:  cause,
	}
}

// Codegen reports a failure lowering a graph to device code.
func Codegen(network, detail string) *Error {
	return &Error{
		Phase:   PhaseCompile,
		Kind:    KindCodegen,
		Network: network,
		Detail:  detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// IsKind reports whether err is an *Error of the given kind, at any phase.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
