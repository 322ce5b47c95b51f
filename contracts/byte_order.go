package contracts

import (
	"encoding/binary"
	"fmt"
	"strings"
)

type ByteOrder int

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

func (b ByteOrder) String() string {
	if b == BigEndian {
		return "big-endian"
	}
	return "little-endian"
}

// Binary returns the encoding/binary order for b.
func (b ByteOrder) Binary() binary.ByteOrder {
	if b == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// HostByteOrder reports the byte order of the running machine.
func HostByteOrder() ByteOrder {
	var buf [2]byte
	binary.NativeEndian.PutUint16(buf[:], 1)
	if buf[0] == 1 {
		return LittleEndian
	}
	return BigEndian
}

func ParseByteOrder(s string) (ByteOrder, error) {
	switch strings.ToLower(s) {
	case "little", "little-endian", "<", "ii":
		return LittleEndian, nil
	case "big", "big-endian", ">", "mm":
		return BigEndian, nil
	}
	return LittleEndian, fmt.Errorf("unknown byte order %q", s)
}
