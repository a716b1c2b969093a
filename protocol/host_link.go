//go:build !tinygo

package protocol

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Message is a response block received by the host
type Message struct {
	Sequence uint8
	CmdID    uint16
	Args     []byte
}

// HostLink is the host end of the bench link: it sends one command block
// at a time, waits for the ack and queues responses.
type HostLink struct {
	port io.ReadWriteCloser

	mu  sync.Mutex // serialises SendCommand
	seq uint8

	scanner blockScanner
	input   *FifoBuffer

	acks      chan uint8
	responses chan Message

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewHostLink(port io.ReadWriteCloser) *HostLink {
	l := &HostLink{
		port:      port,
		seq:       MessageDest,
		input:     NewFifoBuffer(1024),
		acks:      make(chan uint8, 1),
		responses: make(chan Message, 16),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go l.readLoop()
	return l
}

// SendCommand writes one command block and waits for its ack
func (l *HostLink) SendCommand(cmdID uint16, args func(output OutputBuffer), timeout time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := NewScratchOutput()
	EncodeBlock(out, l.seq, func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
	msg := out.Result()
	if len(msg) > MessageLengthMax {
		return fmt.Errorf("command %d is %d bytes: %w", cmdID, len(msg), ErrMessageTooLong)
	}

	// stale acks from an earlier timeout would be mistaken for ours
	select {
	case <-l.acks:
	default:
	}

	n, err := l.port.Write(msg)
	if err != nil {
		return fmt.Errorf("write command %d: %w", cmdID, err)
	}
	if n != len(msg) {
		return fmt.Errorf("write command %d: short write %d/%d", cmdID, n, len(msg))
	}

	want := nextSequence(l.seq)
	select {
	case got := <-l.acks:
		if got != want {
			l.seq = got
			return fmt.Errorf("command %d: got sequence 0x%02x, want 0x%02x: %w", cmdID, got, want, ErrNak)
		}
		l.seq = want
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("command %d after %v: %w", cmdID, timeout, ErrAckTimeout)
	case <-l.stop:
		return ErrLinkClosed
	}
}

// ReceiveResponse returns the oldest queued response
func (l *HostLink) ReceiveResponse(timeout time.Duration) (Message, error) {
	select {
	case msg := <-l.responses:
		return msg, nil
	case <-time.After(timeout):
		return Message{}, fmt.Errorf("no response after %v", timeout)
	case <-l.stop:
		return Message{}, ErrLinkClosed
	}
}

// Close stops the reader and closes the port
func (l *HostLink) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.stop)
		err = l.port.Close()
		<-l.done
	})
	return err
}

func (l *HostLink) readLoop() {
	defer close(l.done)

	buf := make([]byte, 256)
	for {
		n, err := l.port.Read(buf)
		if n > 0 {
			l.input.Write(buf[:n])
			l.process()
		}
		if err != nil {
			select {
			case <-l.stop:
				return
			default:
			}
			if errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
				return
			}
			// serial read timeouts surface as io.EOF
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func (l *HostLink) process() {
	data := l.input.Data()
	used := 0
	for {
		blk, n, ok := l.scanner.scan(data[used:])
		used += n
		if !ok {
			break
		}
		if len(blk.Payload) == 0 {
			select {
			case l.acks <- blk.Sequence:
			default:
			}
			continue
		}

		payload := append([]byte(nil), blk.Payload...)
		cmdID, err := DecodeVLQUint(&payload)
		if err != nil {
			continue
		}
		msg := Message{Sequence: blk.Sequence, CmdID: uint16(cmdID), Args: payload}
		select {
		case l.responses <- msg:
		default:
			// drop the oldest response
			select {
			case <-l.responses:
			default:
			}
			l.responses <- msg
		}
	}
	l.input.Pop(used)
}
