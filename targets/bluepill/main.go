//go:build stm32f103

package main

import (
	"machine"
	"time"

	"escdrive/core"
	"escdrive/protocol"
)

const (
	linkBaud    = 250000
	consoleBaud = 115200
)

var (
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	link         *protocol.Link

	loop *core.MotorLoop

	linkErrors uint32
)

func main() {
	machine.UART1.Configure(machine.UARTConfig{BaudRate: linkBaud})
	machine.UART2.Configure(machine.UARTConfig{BaudRate: consoleBaud, TX: machine.PA2, RX: machine.PA3})
	core.SetDebugWriter(func(s string) {
		machine.UART2.Write([]byte(s))
		machine.UART2.Write([]byte("\r\n"))
	})
	core.SetDebugEnabled(true)
	core.InitAsyncDebug()

	machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	InitClock()
	initDMAInterrupts()

	pins := &F1PinDriver{}
	for _, r := range reservedPins {
		if err := pins.ClaimPin(r.pin, r.owner); err != nil {
			core.DebugPrintln("[BOOT] reserve pin " + itoa(int(r.pin)) + ": " + err.Error())
		}
	}

	output := core.NewMotorOutput(core.Hardware{
		Clock: F1ClockDriver{},
		Pins:  pins,
		Timer: F1TimerDriver{},
		DMA:   NewF1DMADriver(),
		IRQ:   F1IRQDriver{},
	})
	core.SetMotorWriter(output)

	loop = core.NewMotorLoop(core.MustMotorWriter())
	board := &core.BoardMotors{Output: output, Resources: motorResources[:]}
	if err := core.InitMotorCommands(loop, board, output); err != nil {
		core.DebugPrintln("[BOOT] " + err.Error())
	}

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()
	link = protocol.NewLink(outputBuffer, core.DispatchCommand)
	link.SetResetCallback(func() {
		inputBuffer.Reset()
		outputBuffer.Reset()
		loop.EmergencyStop()
	})
	link.SetFlushCallback(writeLink)
	link.SetErrorCallback(func(cmdID uint16, err error) {
		linkErrors++
		core.DebugPrintln("[LINK] command " + itoa(int(cmdID)) + ": " + err.Error())
	})
	core.SetResponseSender(link.SendResponse)

	core.DebugPrintln("[BOOT] escdrive " + protocol.Version + " bluepill")

	for {
		UpdateSystemTime()

		for machine.UART1.Buffered() > 0 {
			b, err := machine.UART1.ReadByte()
			if err != nil {
				break
			}
			if inputBuffer.Write([]byte{b}) == 0 {
				linkErrors++
				break
			}
		}
		if inputBuffer.Available() > 0 {
			inputBuffer.Pop(link.Receive(inputBuffer.Data()))
		}
		writeLink()

		core.ProcessTimers()
		updateLED()

		time.Sleep(10 * time.Microsecond)
	}
}

// writeLink pushes queued acks and responses out of USART1
func writeLink() {
	if result := outputBuffer.Result(); len(result) > 0 {
		machine.UART1.Write(result)
		outputBuffer.Reset()
	}
}

// updateLED: solid while the loop runs, fast blink in failsafe, off when
// idle. The bluepill LED is active low.
func updateLED() {
	on := loop.Running()
	if loop.Failsafe() {
		on = (core.GetTime()/100000)%2 == 0
	}
	machine.LED.Set(!on)
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
