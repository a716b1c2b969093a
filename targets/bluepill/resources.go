//go:build stm32f103

package main

import "escdrive/core"

// motorResources is the bluepill motor map. DMA1 channels follow the
// F103 request table for each compare channel.
var motorResources = [...]core.MotorResource{
	// M1 PB6 TIM4_CH1, DMA1 channel 1
	{Timer: tim4Base, Channel: core.Channel1, Pin: portB + 6, Stream: 1},
	// M2 PB7 TIM4_CH2, DMA1 channel 4
	{Timer: tim4Base, Channel: core.Channel2, Pin: portB + 7, Stream: 4},
	// M3 PA6 TIM3_CH1, DMA1 channel 6
	{Timer: tim3Base, Channel: core.Channel1, Pin: portA + 6, Stream: 6},
	// M4 PB1 TIM3_CH4, DMA1 channel 3
	{Timer: tim3Base, Channel: core.Channel4, Pin: portB + 1, Stream: 3},
}

// Pins the firmware itself uses
var reservedPins = []struct {
	pin   core.PinID
	owner core.PinOwner
}{
	{portA + 9, core.OwnerSerial},  // USART1 TX, host link
	{portA + 10, core.OwnerSerial}, // USART1 RX
	{portA + 2, core.OwnerSerial},  // USART2 TX, debug console
	{portA + 3, core.OwnerSerial},  // USART2 RX
	{portC + 13, core.OwnerLED},
}
