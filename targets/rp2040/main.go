//go:build rp2040

package main

import (
	"machine"
	"time"

	"escdrive/core"
	"escdrive/protocol"
	"escdrive/targets/pio"
)

var (
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	link         *protocol.Link

	loop   *core.MotorLoop
	status *StatusLED

	// Debug counters
	linkErrors               uint32
	consecutiveWriteFailures uint32
)

func main() {
	// Clear any watchdog state left from a previous reset
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	InitUSB()
	machine.UART0.Configure(machine.UARTConfig{BaudRate: 115200})
	core.SetDebugWriter(func(s string) {
		machine.UART0.Write([]byte(s))
		machine.UART0.Write([]byte("\r\n"))
	})
	core.SetDebugEnabled(true)
	core.InitAsyncDebug()

	pins := &RPPinDriver{}
	for _, r := range reservedPins {
		if err := pins.ClaimPin(core.PinID(r.pin), r.owner); err != nil {
			core.DebugPrintln("[BOOT] reserve gpio" + itoa(int(r.pin)) + ": " + err.Error())
		}
	}

	writer := pio.NewDShotWriter(motorPins[:], pins)
	core.SetMotorWriter(writer)

	loop = core.NewMotorLoop(core.MustMotorWriter())
	if err := core.InitMotorCommands(loop, writer, writer); err != nil {
		core.DebugPrintln("[BOOT] " + err.Error())
	}
	status = NewStatusLED(statusLEDPin)

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()
	link = protocol.NewLink(outputBuffer, core.DispatchCommand)
	link.SetResetCallback(func() {
		inputBuffer.Reset()
		outputBuffer.Reset()
		loop.EmergencyStop()
	})
	// acks must go out before the response they precede
	link.SetFlushCallback(writeUSB)
	link.SetErrorCallback(func(cmdID uint16, err error) {
		linkErrors++
		core.DebugPrintln("[LINK] command " + itoa(int(cmdID)) + ": " + err.Error())
	})
	core.SetResponseSender(link.SendResponse)

	core.DebugPrintln("[BOOT] escdrive " + protocol.Version + " rp2040")

	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					linkErrors++
					inputBuffer.Reset()
					outputBuffer.Reset()
					loop.EmergencyStop()
				}
			}()

			UpdateSystemTime()
			readUSB()
			if inputBuffer.Available() > 0 {
				inputBuffer.Pop(link.Receive(inputBuffer.Data()))
			}
			writeUSB()

			core.ProcessTimers()
			status.Update(loop)
		}()

		time.Sleep(10 * time.Microsecond)
	}
}

func readUSB() {
	for USBAvailable() > 0 {
		b, err := USBRead()
		if err != nil {
			linkErrors++
			return
		}
		if inputBuffer.Write([]byte{b}) == 0 {
			linkErrors++
			return
		}
	}
}

// writeUSB writes queued acks and responses, dropping them after repeated
// failures so a disconnected host does not wedge the loop
func writeUSB() {
	result := outputBuffer.Result()
	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				consecutiveWriteFailures = 0
				outputBuffer.Reset()
				inputBuffer.Reset()
			}
			return
		}
		written += n
	}
	if len(result) > 0 {
		consecutiveWriteFailures = 0
		outputBuffer.Reset()
	}
}

// itoa converts int to string without importing strconv (for embedded)
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	negative := i < 0
	if negative {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if negative {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
