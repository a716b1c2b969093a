package protocol

import "errors"

var (
	ErrMessageTooLong = errors.New("link block exceeds maximum length")
	ErrUnknownCommand = errors.New("unknown command")
	ErrLinkClosed     = errors.New("link closed")
	ErrAckTimeout     = errors.New("ack timeout")
	ErrNak            = errors.New("firmware expected another sequence")

	errHandlerPanic = errors.New("command handler panicked")
)
