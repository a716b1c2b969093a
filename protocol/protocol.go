// Package protocol holds the DShot frame encoder and the framing used on the
// bench link between the host and the motor firmware.
package protocol

// Version is reported by the firmware banner and the host CLI
const Version = "0.2.0"

// Link block layout: [len][seq][payload...][crc hi][crc lo][sync]
const (
	MessageMax         = 256 // scratch output size, several blocks per flush
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F
)

// nextSequence advances a sequence byte within the 0x10..0x1F window
func nextSequence(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}
