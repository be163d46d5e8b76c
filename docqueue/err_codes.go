package docqueue

const (
	// CodeInvalidArgument is returned on call-site misuse: an empty batch,
	// a missing store, or an out of range option value.
	CodeInvalidArgument = "INVALID_ARGUMENT"

	// CodeUnknownAck is returned when an ack token no longer identifies a live lease.
	// The lease expired, the message was already acked or re-claimed, or the token never existed.
	CodeUnknownAck = "UNKNOWN_ACK"

	// CodeAlreadyConfigured is returned when a handler is registered twice on one processor.
	CodeAlreadyConfigured = "ALREADY_CONFIGURED"

	// CodeAckConflict is returned by a store when a claim would reuse a live ack token.
	// It indicates a broken adapter or token generator and is never expected in normal operation.
	CodeAckConflict = "ACK_CONFLICT"
)
