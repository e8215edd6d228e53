package base

import (
	"encoding/binary"
	"fmt"
)

// rowversionHex конвертирует MS SQL TIMESTAMP/ROWVERSION в hex без ведущих нулей.
// Для 8 байт работает без аллокаций, остальные длины идут через fmt.
//
// Примеры:
//   - []byte{0x00, 0x00, 0x00, 0x00, 0x18, 0x7F, 0x86, 0x3C} → "187F863C"
//   - []byte{0x00, 0x00, 0x00, 0x19, 0xA4, 0xAE, 0x7C, 0x00} → "19A4AE7C00"
//   - восемь нулевых байт → "00"
func rowversionHex(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if len(data) != 8 {
		return trimmedHex(data)
	}

	value := binary.BigEndian.Uint64(data)
	if value == 0 {
		return "00"
	}

	const hexChars = "0123456789ABCDEF"
	var result [16]byte
	pos := 16

	// Кодируем справа налево
	for value > 0 {
		pos--
		result[pos] = hexChars[value&0x0F]
		value >>= 4
	}

	return string(result[pos:])
}

// trimmedHex - hex без ведущих нулевых байт для произвольной длины
func trimmedHex(b []byte) string {
	for i, v := range b {
		if v != 0 {
			return fmt.Sprintf("%X", b[i:])
		}
	}
	return "00"
}
