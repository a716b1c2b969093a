package core

// TimerChannel selects one of the four compare channels of a timer
type TimerChannel uint8

const (
	Channel1 TimerChannel = iota + 1
	Channel2
	Channel3
	Channel4
)

// Capture/compare DMA request enables in TIMx_DIER
const (
	DMASourceCC1 DMASource = 1 << (9 + iota)
	DMASourceCC2
	DMASourceCC3
	DMASourceCC4
)

// channelInfo is what a compare channel needs from the timer register map
type channelInfo struct {
	ccrOffset uintptr
	source    DMASource
}

// channelTable is indexed by TimerChannel; entry 0 is unused
var channelTable = [...]channelInfo{
	{},
	{ccrOffset: 0x34, source: DMASourceCC1},
	{ccrOffset: 0x38, source: DMASourceCC2},
	{ccrOffset: 0x3C, source: DMASourceCC3},
	{ccrOffset: 0x40, source: DMASourceCC4},
}

func lookupChannel(ch TimerChannel) (channelInfo, bool) {
	if ch < Channel1 || int(ch) >= len(channelTable) {
		return channelInfo{}, false
	}
	return channelTable[ch], true
}

func (ch TimerChannel) String() string {
	switch ch {
	case Channel1:
		return "CH1"
	case Channel2:
		return "CH2"
	case Channel3:
		return "CH3"
	case Channel4:
		return "CH4"
	}
	return "CH?"
}
