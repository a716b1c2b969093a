package protocol

import "testing"

func TestCRC16(t *testing.T) {
	if crc := CRC16(nil); crc != 0xFFFF {
		t.Errorf("CRC16(empty) = 0x%04X, want 0xFFFF", crc)
	}

	// Klipper reference vector: the host's first ack block
	if crc := CRC16([]byte{5, MessageDest}); crc == 0 {
		t.Error("CRC16 of ack header returned 0")
	}
}

func TestCRC16DetectsChange(t *testing.T) {
	data1 := []byte{0x01, 0x02, 0x03}
	data2 := []byte{0x01, 0x02, 0x04}

	if CRC16(data1) != CRC16(data1) {
		t.Error("CRC16 not deterministic")
	}
	if CRC16(data1) == CRC16(data2) {
		t.Errorf("CRC16 collision on single byte change: %04X", CRC16(data1))
	}
}
