// Package gpiolink talks to a remote GPIO breakout over serial or TCP and
// exposes its pins as stepper capabilities.  The wire format is a small
// CRC-checked telegram protocol; the breakout firmware acknowledges every
// command so a lost or corrupted frame surfaces as an error instead of a
// silently dropped pulse.
package gpiolink

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/snksoft/crc"
)

const (
	// telStart is the start of telegram byte
	telStart = 0x0D

	// telEnd is the end of telegram byte
	telEnd = 0x0A

	// escByte marks an escaped special character
	escByte = 0x5E

	// escShift is the amount special characters are shifted up by.
	// special characters max out at 0x5E, so we never overflow
	escShift = 0x40
)

// Opcodes of the breakout protocol.
const (
	// OpSetPin drives a pin; Pin selects it, Arg is 0 or 1.
	OpSetPin = 0x01

	// OpDelay asks the breakout to hold for Arg nanoseconds before
	// acknowledging.  The firmware timer does the pacing so the pulse
	// train is immune to host scheduling jitter.
	OpDelay = 0x02

	// OpAck is the success response.
	OpAck = 0x06

	// OpNak is the failure response; Arg carries a firmware error code.
	OpNak = 0x15
)

var (
	dataOrder = binary.LittleEndian

	// specialChars must not appear raw inside a telegram body
	specialChars = []byte{0x0A, 0x0D, 0x5E}

	crcTable = crc.NewTable(crc.XMODEM)
)

// Message is one telegram body before framing.
type Message struct {
	Op  byte
	Pin byte
	Arg uint32
}

// Nak reports whether the message is a failure response.
func (m Message) Nak() bool {
	return m.Op == OpNak
}

func escape(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, b := range data {
		if bytes.Contains(specialChars, []byte{b}) {
			out = append(out, escByte, b+escShift)
		} else {
			out = append(out, b)
		}
	}
	return out
}

func unescape(data []byte) []byte {
	out := make([]byte, 0, len(data))
	subNext := false
	for _, b := range data {
		if b == escByte && !subNext {
			subNext = true
			continue
		}
		if subNext {
			b -= escShift
			subNext = false
		}
		out = append(out, b)
	}
	return out
}

func crcBytes(body []byte) []byte {
	c := crcTable.InitCrc()
	c = crcTable.UpdateCrc(c, body)
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, crcTable.CRC16(c))
	return out
}

// telegrams are encoded as [SOT][OP][PIN][ARG x4, little endian][CRC x2][EOT]
// with the body and CRC escaped so SOT/EOT never appear inside a frame.

// Marshal frames a message into a wire telegram.
func Marshal(m Message) []byte {
	body := make([]byte, 6)
	body[0] = m.Op
	body[1] = m.Pin
	dataOrder.PutUint32(body[2:], m.Arg)

	out := []byte{telStart}
	out = append(out, escape(body)...)
	out = append(out, escape(crcBytes(body))...)
	out = append(out, telEnd)
	return out
}

// Decode parses a wire telegram back into a message, verifying framing and
// the CRC.
func Decode(tele []byte) (Message, error) {
	iStart := bytes.IndexByte(tele, telStart)
	if iStart < 0 {
		return Message{}, fmt.Errorf("telegram start byte %#X not found", telStart)
	}
	iEnd := bytes.IndexByte(tele, telEnd)
	if iEnd < 0 {
		return Message{}, fmt.Errorf("telegram end byte %#X not found", telEnd)
	}
	body := unescape(tele[iStart+1 : iEnd])
	if len(body) != 8 {
		return Message{}, fmt.Errorf("telegram body is %d bytes, expected 8", len(body))
	}
	recv := body[6:]
	body = body[:6]
	if !bytes.Equal(recv, crcBytes(body)) {
		return Message{}, fmt.Errorf("telegram CRC mismatch, breakout state unknown")
	}
	return Message{
		Op:  body[0],
		Pin: body[1],
		Arg: dataOrder.Uint32(body[2:]),
	}, nil
}
