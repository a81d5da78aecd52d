package enablement

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Kind categorizes an enablement failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindCapabilityMissing: no notification or worker support on the host.
	KindCapabilityMissing
	// KindPermission: the permission prompt itself failed.
	KindPermission
	// KindRegistration: worker registration was rejected or never became ready.
	KindRegistration
	// KindRegistrationTimeout: the worker did not become ready in time.
	KindRegistrationTimeout
	// KindDecode: the application server key is not valid Base64URL.
	KindDecode
	// KindSubscription: the push manager rejected the subscription.
	KindSubscription
	// KindMissingKeyMaterial: the subscription lacks p256dh or auth.
	KindMissingKeyMaterial
	// KindSubmission: the backend did not accept the subscription.
	KindSubmission
)

func (k Kind) String() string {
	switch k {
	case KindCapabilityMissing:
		return "capability_missing"
	case KindPermission:
		return "permission"
	case KindRegistration:
		return "registration"
	case KindRegistrationTimeout:
		return "registration_timeout"
	case KindDecode:
		return "decode"
	case KindSubscription:
		return "subscription"
	case KindMissingKeyMaterial:
		return "missing_key_material"
	case KindSubmission:
		return "submission"
	default:
		return "unknown"
	}
}

// Error is a failure inside the enablement flow.
type Error struct {
	// Op is the operation that failed (e.g. "enablement.subscribe").
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Reporter is the diagnostic sink for failures that never reach the user.
type Reporter interface {
	HandleError(err *Error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(err *Error)

// HandleError calls f(err).
func (f ReporterFunc) HandleError(err *Error) {
	f(err)
}

// LogReporter writes reported errors to a zap logger.
type LogReporter struct {
	Logger *zap.Logger
}

// HandleError logs err. A missing capability is expected on some hosts and
// is logged at debug.
func (r LogReporter) HandleError(err *Error) {
	if err == nil || r.Logger == nil {
		return
	}
	fields := []zap.Field{zap.String("op", err.Op), zap.Stringer("kind", err.Kind), zap.Error(err.Err)}
	if err.Kind == KindCapabilityMissing {
		r.Logger.Debug("enablement skipped", fields...)
		return
	}
	r.Logger.Error("enablement failed", fields...)
}
