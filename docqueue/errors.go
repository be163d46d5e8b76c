package docqueue

import (
	"github.com/code19m/errx"
)

func newInvalidArgument(msg string, details errx.D) error {
	return errx.New("[docqueue]: "+msg,
		errx.WithCode(CodeInvalidArgument),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(details),
	)
}

func newUnknownAck(queueName, op, ack string) error {
	return errx.New("[docqueue]: unknown ack token",
		errx.WithCode(CodeUnknownAck),
		errx.WithType(errx.T_NotFound),
		errx.WithDetails(errx.D{
			"queue":     queueName,
			"operation": op,
			"ack":       ack,
		}),
	)
}

// NewAckConflict builds the error a Store returns when the uniqueness of
// non-empty ack tokens would be violated. cause may be nil.
func NewAckConflict(cause error, ack string) error {
	details := errx.D{"ack": ack}
	if cause == nil {
		return errx.New("[docqueue]: ack token already held by another message",
			errx.WithCode(CodeAckConflict),
			errx.WithType(errx.T_Internal),
			errx.WithDetails(details),
		)
	}
	return errx.Wrap(cause,
		errx.WithCode(CodeAckConflict),
		errx.WithType(errx.T_Internal),
		errx.WithDetails(details),
	)
}
