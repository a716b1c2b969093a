package protocol

import (
	"errors"
	"testing"
)

func encodeCommand(seq uint8, cmdID uint16, args ...uint32) []byte {
	out := NewScratchOutput()
	EncodeBlock(out, seq, func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		for _, a := range args {
			EncodeVLQUint(output, a)
		}
	})
	return append([]byte(nil), out.Result()...)
}

func TestBlockRoundTrip(t *testing.T) {
	raw := encodeCommand(MessageDest, 4, 2, 1500)
	if int(raw[MessagePositionLen]) != len(raw) {
		t.Fatalf("length byte %d, block is %d bytes", raw[MessagePositionLen], len(raw))
	}
	if raw[len(raw)-1] != MessageValueSync {
		t.Fatalf("block does not end in sync byte: %v", raw)
	}

	var s blockScanner
	blk, used, ok := s.scan(raw)
	if !ok || used != len(raw) {
		t.Fatalf("scan = ok %v used %d, want ok true used %d", ok, used, len(raw))
	}
	if blk.Sequence != MessageDest {
		t.Errorf("sequence = 0x%02x", blk.Sequence)
	}

	payload := blk.Payload
	var cmd, motor, throttle uint32
	if err := DecodeArgs(&payload, &cmd, &motor, &throttle); err != nil {
		t.Fatal(err)
	}
	if cmd != 4 || motor != 2 || throttle != 1500 {
		t.Errorf("payload decoded to %d %d %d", cmd, motor, throttle)
	}
}

func TestBlockScannerResync(t *testing.T) {
	good := encodeCommand(MessageDest, 1)
	bad := encodeCommand(MessageDest, 2)
	bad[2] ^= 0xFF // corrupt payload, CRC now wrong

	stream := append([]byte{0x02, MessageValueSync}, bad...)
	stream = append(stream, good...)

	var s blockScanner
	blk, _, ok := s.scan(stream)
	if !ok {
		t.Fatal("scanner did not recover the good block")
	}
	payload := blk.Payload
	id, _ := DecodeVLQUint(&payload)
	if id != 1 {
		t.Errorf("recovered command %d, want 1", id)
	}
}

func TestBlockScannerPartial(t *testing.T) {
	raw := encodeCommand(MessageDest, 4, 1, 1200)

	var s blockScanner
	if _, used, ok := s.scan(raw[:4]); ok || used != 0 {
		t.Errorf("partial block: ok %v used %d, want false 0", ok, used)
	}
	if _, used, ok := s.scan(raw); !ok || used != len(raw) {
		t.Errorf("full block: ok %v used %d", ok, used)
	}
}

type linkCall struct {
	cmd  uint16
	args []uint32
}

func newTestLink(out *ScratchOutput, calls *[]linkCall) *Link {
	return NewLink(out, func(cmdID uint16, data *[]byte) error {
		var motor, value uint32
		if err := DecodeArgs(data, &motor, &value); err != nil {
			return err
		}
		*calls = append(*calls, linkCall{cmd: cmdID, args: []uint32{motor, value}})
		return nil
	})
}

func scanAll(t *testing.T, data []byte) []Block {
	t.Helper()
	var s blockScanner
	var blocks []Block
	for len(data) > 0 {
		blk, used, ok := s.scan(data)
		if !ok {
			break
		}
		blocks = append(blocks, blk)
		data = data[used:]
	}
	return blocks
}

func TestLinkAcksAndDispatches(t *testing.T) {
	out := NewScratchOutput()
	var calls []linkCall
	link := newTestLink(out, &calls)

	stream := encodeCommand(MessageDest, 4, 0, 1100)
	stream = append(stream, encodeCommand(MessageDest|1, 4, 1, 1200)...)

	if used := link.Receive(stream); used != len(stream) {
		t.Errorf("Receive used %d of %d bytes", used, len(stream))
	}
	if len(calls) != 2 || calls[1].args[1] != 1200 {
		t.Fatalf("calls = %+v", calls)
	}

	acks := scanAll(t, out.Result())
	if len(acks) != 2 {
		t.Fatalf("got %d acks, want 2", len(acks))
	}
	if acks[0].Sequence != MessageDest|1 || acks[1].Sequence != MessageDest|2 {
		t.Errorf("ack sequences 0x%02x 0x%02x", acks[0].Sequence, acks[1].Sequence)
	}
}

func TestLinkDropsRetransmission(t *testing.T) {
	out := NewScratchOutput()
	var calls []linkCall
	link := newTestLink(out, &calls)

	first := encodeCommand(MessageDest, 4, 0, 1100)
	second := encodeCommand(MessageDest|1, 4, 0, 1300)
	link.Receive(first)
	link.Receive(second)
	link.Receive(second)

	if len(calls) != 2 {
		t.Errorf("retransmitted block dispatched: %d calls", len(calls))
	}
	acks := scanAll(t, out.Result())
	if last := acks[len(acks)-1]; last.Sequence != MessageDest|2 {
		t.Errorf("nak sequence 0x%02x, want 0x%02x", last.Sequence, MessageDest|2)
	}
}

func TestLinkHostReset(t *testing.T) {
	out := NewScratchOutput()
	var calls []linkCall
	link := newTestLink(out, &calls)

	resets := 0
	link.SetResetCallback(func() { resets++ })

	link.Receive(encodeCommand(MessageDest, 4, 0, 1100))
	link.Receive(encodeCommand(MessageDest, 4, 0, 1100))

	if resets != 1 {
		t.Errorf("resets = %d, want 1", resets)
	}
	if len(calls) != 2 {
		t.Errorf("calls after reset = %d, want 2", len(calls))
	}
}

func TestLinkHandlerError(t *testing.T) {
	out := NewScratchOutput()
	boom := errors.New("boom")
	link := NewLink(out, func(cmdID uint16, data *[]byte) error {
		return boom
	})

	var gotID uint16
	var gotErr error
	link.SetErrorCallback(func(cmdID uint16, err error) {
		gotID, gotErr = cmdID, err
	})

	link.Receive(encodeCommand(MessageDest, 6))
	if gotID != 6 || !errors.Is(gotErr, boom) {
		t.Errorf("error callback got (%d, %v)", gotID, gotErr)
	}
}

func TestLinkSendResponse(t *testing.T) {
	out := NewScratchOutput()
	link := NewLink(out, nil)

	link.SendResponse(0, func(output OutputBuffer) {
		EncodeVLQUint(output, 2)
		EncodeVLQUint(output, 1048)
	})

	blocks := scanAll(t, out.Result())
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks", len(blocks))
	}
	payload := blocks[0].Payload
	var id, motor, value uint32
	if err := DecodeArgs(&payload, &id, &motor, &value); err != nil {
		t.Fatal(err)
	}
	if id != 0 || motor != 2 || value != 1048 {
		t.Errorf("response decoded to %d %d %d", id, motor, value)
	}
}

func TestCommandTable(t *testing.T) {
	seen := make(map[string]bool)
	for i, entry := range MotorCommands {
		if seen[entry.Name] {
			t.Errorf("duplicate command %q", entry.Name)
		}
		seen[entry.Name] = true

		id, ok := CommandID(entry.Name)
		if !ok || int(id) != i {
			t.Errorf("CommandID(%q) = %d, %v, want %d", entry.Name, id, ok, i)
		}
	}
	if _, ok := CommandID("get_uptime"); ok {
		t.Error("CommandID found a command that is not in the table")
	}
}
