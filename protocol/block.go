package protocol

import "bytes"

// Block is one validated link block
type Block struct {
	Sequence uint8
	Payload  []byte // aliases the receive buffer
}

// EncodeBlock writes a complete block whose payload is produced by body.
// A nil body produces an empty block, which is how acks are sent.
func EncodeBlock(output OutputBuffer, seq uint8, body func(OutputBuffer)) {
	cursor := output.CurPosition()
	output.Output([]byte{0, seq})
	if body != nil {
		body(output)
	}

	output.Update(cursor, uint8(len(output.DataSince(cursor))+MessageTrailerSize))

	crc := CRC16(output.DataSince(cursor))
	output.Output([]byte{
		uint8(crc >> 8),
		uint8(crc),
		MessageValueSync,
	})
}

// blockScanner splits a byte stream into blocks. After any framing or CRC
// error it drops bytes up to the next sync byte.
type blockScanner struct {
	lostSync bool
}

// scan returns the first valid block in data and how many bytes of data
// were used. When ok is false, used covers only discarded garbage and the
// rest of data must be kept for the next call.
func (s *blockScanner) scan(data []byte) (blk Block, used int, ok bool) {
	total := len(data)
	for len(data) > 0 {
		if s.lostSync {
			i := bytes.IndexByte(data, MessageValueSync)
			if i < 0 {
				data = nil
				break
			}
			data = data[i+1:]
			s.lostSync = false
			continue
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}
		if len(data) < MessageLengthMin {
			break
		}

		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			s.lostSync = true
			continue
		}
		if len(data) < msgLen {
			break
		}
		if data[msgLen-MessageTrailerSync] != MessageValueSync {
			s.lostSync = true
			continue
		}

		frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
			uint16(data[msgLen-MessageTrailerCRC+1])
		if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
			s.lostSync = true
			continue
		}

		blk = Block{
			Sequence: data[MessagePositionSeq],
			Payload:  data[MessageHeaderSize : msgLen-MessageTrailerSize],
		}
		data = data[msgLen:]
		return blk, total - len(data), true
	}
	return Block{}, total - len(data), false
}
