package protocol

// CommandHandler decodes and runs one command; it must consume its own
// arguments from data.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Link is the firmware end of the bench link. It acks every block from the
// host, drops retransmissions and dispatches the commands it carries.
type Link struct {
	scanner blockScanner
	nextSeq uint8
	output  OutputBuffer
	handler CommandHandler

	resetCallback func()
	flushCallback func()
	errorCallback func(cmdID uint16, err error)
}

func NewLink(output OutputBuffer, handler CommandHandler) *Link {
	return &Link{
		nextSeq: MessageDest,
		output:  output,
		handler: handler,
	}
}

// Receive processes every complete block in data and returns the number of
// bytes the caller may drop.
func (l *Link) Receive(data []byte) int {
	used := 0
	for {
		blk, n, ok := l.scanner.scan(data[used:])
		used += n
		if !ok {
			return used
		}
		if blk.Sequence&^MessageSeqMask != MessageDest {
			continue
		}

		// host restarted its sequence
		if blk.Sequence == MessageDest && l.nextSeq != MessageDest {
			l.nextSeq = MessageDest
			if l.resetCallback != nil {
				l.resetCallback()
			}
		}

		if blk.Sequence != l.nextSeq {
			// retransmission or gap: nak with the sequence we expect
			l.encodeAck()
			continue
		}

		l.nextSeq = nextSequence(blk.Sequence)
		l.encodeAck()
		l.dispatch(blk.Payload)
	}
}

func (l *Link) dispatch(payload []byte) {
	var cmdID uint32
	defer func() {
		if r := recover(); r != nil {
			l.scanner.lostSync = true
			if l.errorCallback != nil {
				l.errorCallback(uint16(cmdID), errHandlerPanic)
			}
		}
	}()

	for len(payload) > 0 {
		var err error
		cmdID, err = DecodeVLQUint(&payload)
		if err != nil {
			l.scanner.lostSync = true
			return
		}
		if l.handler == nil {
			return
		}
		if err := l.handler(uint16(cmdID), &payload); err != nil {
			// arguments of the failed command are unknown; drop the rest
			if l.errorCallback != nil {
				l.errorCallback(uint16(cmdID), err)
			}
			return
		}
	}
}

func (l *Link) encodeAck() {
	EncodeBlock(l.output, l.nextSeq, nil)
	if l.flushCallback != nil {
		l.flushCallback()
	}
}

// SendResponse queues a response block for the host
func (l *Link) SendResponse(cmdID uint16, args func(output OutputBuffer)) {
	EncodeBlock(l.output, l.nextSeq, func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Reset forgets the host sequence, e.g. after the serial line dropped
func (l *Link) Reset() {
	l.scanner.lostSync = false
	l.nextSeq = MessageDest
	if l.resetCallback != nil {
		l.resetCallback()
	}
}

// SetResetCallback is called when the host restarts its sequence
func (l *Link) SetResetCallback(callback func()) {
	l.resetCallback = callback
}

// SetFlushCallback is called right after an ack is queued so the target can
// push it out before any response
func (l *Link) SetFlushCallback(callback func()) {
	l.flushCallback = callback
}

// SetErrorCallback receives command handler failures
func (l *Link) SetErrorCallback(callback func(cmdID uint16, err error)) {
	l.errorCallback = callback
}
