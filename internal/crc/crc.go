// Package crc implements CRC-16/CCITT-FALSE, used to protect multi-frame
// UAVCAN transfers.
package crc

// CRC16 is a running CRC-16/CCITT-FALSE accumulator (poly 0x1021, init
// 0xFFFF, no input/output reflection, no final xor).
type CRC16 uint16

// InitialValue is the accumulator value before any bytes are processed.
const InitialValue CRC16 = 0xFFFF

// Single folds one byte into the accumulator.
func (c *CRC16) Single(b byte) {
	crc := *c
	crc ^= CRC16(b) << 8
	for range 8 {
		if crc&0x8000 != 0 {
			crc = (crc << 1) ^ 0x1021
		} else {
			crc <<= 1
		}
	}
	*c = crc
}

// Add folds every byte of buf into the accumulator, in order.
func (c *CRC16) Add(buf []byte) {
	for _, b := range buf {
		c.Single(b)
	}
}

// Of returns the CRC-16/CCITT-FALSE of buf computed from the initial value.
func Of(buf []byte) CRC16 {
	crc := InitialValue
	crc.Add(buf)
	return crc
}

// Bytes returns the big-endian wire encoding of the accumulator, matching
// real Cyphal/CAN multi-frame transfers. Appending the check value in this
// byte order -- most significant byte first, the same order Single folds
// bytes into the register -- is what makes Of(message++Of(message).Bytes())
// always zero; appending it little-endian breaks that property.
func (c CRC16) Bytes() [2]byte {
	return [2]byte{byte(c >> 8), byte(c)}
}
