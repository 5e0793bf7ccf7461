// Package leb128 decodes the variable-length integer encoding WebAssembly
// uses for immediates. The interpreter walks raw function bodies by program
// counter, so the Load functions operate on byte slices and report how many
// bytes they consumed; the Decode functions wrap the same logic for
// io.Reader-style consumers.
package leb128

import (
	"bytes"
	"errors"
	"io"
)

const (
	maxVarintLen32 = 5
	maxVarintLen33 = 5
	maxVarintLen64 = 10
)

var (
	// ErrOverflow32 reports an encoding too long or too wide for 32 bits.
	ErrOverflow32 = errors.New("overflows a 32-bit integer")
	// ErrOverflow33 reports an encoding too long or too wide for 33 bits.
	ErrOverflow33 = errors.New("overflows a 33-bit integer")
	// ErrOverflow64 reports an encoding too long or too wide for 64 bits.
	ErrOverflow64 = errors.New("overflows a 64-bit integer")
)

// EncodeInt32 encodes the signed value in LEB128 format.
//
// See https://en.wikipedia.org/wiki/LEB128#Signed_LEB128
func EncodeInt32(value int32) []byte {
	return EncodeInt64(int64(value))
}

// EncodeInt64 encodes the signed value in LEB128 format.
func EncodeInt64(value int64) (buf []byte) {
	for {
		b := uint8(value & 0x7f)
		s := uint8(value & 0x40)
		value >>= 7

		if (value != -1 || s == 0) && (value != 0 || s != 0) {
			b |= 0x80
		}

		buf = append(buf, b)

		if b&0x80 == 0 {
			break
		}
	}
	return buf
}

// EncodeUint32 encodes the value in LEB128 format.
//
// See https://en.wikipedia.org/wiki/LEB128#Unsigned_LEB128
func EncodeUint32(value uint32) []byte {
	return EncodeUint64(uint64(value))
}

// EncodeUint64 encodes the value in LEB128 format.
func EncodeUint64(value uint64) (buf []byte) {
	// Take the low seven bits until the rest of the value is zero.
	for {
		b := uint8(value & 0x7f)
		value >>= 7

		if value != 0 {
			b |= 0x80
		}

		buf = append(buf, b)

		if value == 0 {
			break
		}
	}
	return buf
}

// LoadUint32 reads an unsigned 32-bit integer from the start of buf,
// returning the value and the number of bytes consumed.
func LoadUint32(buf []byte) (uint32, uint64, error) {
	var ret uint32
	var shift uint
	for i := 0; i < len(buf); i++ {
		if i >= maxVarintLen32 {
			return 0, 0, ErrOverflow32
		}
		b := buf[i]
		ret |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			// The final byte of a five-byte encoding contributes only
			// bits 28..31.
			if i == maxVarintLen32-1 && b&0xf0 != 0 {
				return 0, 0, ErrOverflow32
			}
			return ret, uint64(i) + 1, nil
		}
		shift += 7
	}
	return 0, 0, io.ErrUnexpectedEOF
}

// LoadUint64 reads an unsigned 64-bit integer from the start of buf,
// returning the value and the number of bytes consumed.
func LoadUint64(buf []byte) (uint64, uint64, error) {
	var ret uint64
	var shift uint
	for i := 0; i < len(buf); i++ {
		if i >= maxVarintLen64 {
			return 0, 0, ErrOverflow64
		}
		b := buf[i]
		ret |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			if i == maxVarintLen64-1 && b > 1 {
				return 0, 0, ErrOverflow64
			}
			return ret, uint64(i) + 1, nil
		}
		shift += 7
	}
	return 0, 0, io.ErrUnexpectedEOF
}

// LoadInt32 reads a signed 32-bit integer from the start of buf, returning
// the value and the number of bytes consumed.
func LoadInt32(buf []byte) (int32, uint64, error) {
	var ret int32
	var shift uint
	for i := 0; i < len(buf); i++ {
		if i >= maxVarintLen32 {
			return 0, 0, ErrOverflow32
		}
		b := buf[i]
		ret |= int32(b&0x7f) << shift
		if b&0x80 == 0 {
			if i == maxVarintLen32-1 {
				// Bits 4..6 of the final byte must replicate the sign
				// bit (bit 3).
				switch {
				case b&0x08 == 0 && b&0x70 != 0,
					b&0x08 != 0 && b&0x70 != 0x70:
					return 0, 0, ErrOverflow32
				}
			}
			if shift+7 < 32 && b&0x40 != 0 {
				ret |= -1 << (shift + 7)
			}
			return ret, uint64(i) + 1, nil
		}
		shift += 7
	}
	return 0, 0, io.ErrUnexpectedEOF
}

// LoadInt64 reads a signed 64-bit integer from the start of buf, returning
// the value and the number of bytes consumed.
func LoadInt64(buf []byte) (int64, uint64, error) {
	var ret int64
	var shift uint
	for i := 0; i < len(buf); i++ {
		if i >= maxVarintLen64 {
			return 0, 0, ErrOverflow64
		}
		b := buf[i]
		ret |= int64(b&0x7f) << shift
		if b&0x80 == 0 {
			// The tenth byte carries a single value bit plus sign.
			if i == maxVarintLen64-1 && b != 0 && b != 0x7f {
				return 0, 0, ErrOverflow64
			}
			if shift+7 < 64 && b&0x40 != 0 {
				ret |= -1 << (shift + 7)
			}
			return ret, uint64(i) + 1, nil
		}
		shift += 7
	}
	return 0, 0, io.ErrUnexpectedEOF
}

// DecodeUint32 reads an unsigned 32-bit integer from r.
func DecodeUint32(r *bytes.Reader) (uint32, uint64, error) {
	var ret uint32
	var shift uint
	var num uint64
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, unexpectedEOF(err)
		}
		if num >= maxVarintLen32 {
			return 0, 0, ErrOverflow32
		}
		ret |= uint32(b&0x7f) << shift
		num++
		if b&0x80 == 0 {
			if num == maxVarintLen32 && b&0xf0 != 0 {
				return 0, 0, ErrOverflow32
			}
			return ret, num, nil
		}
		shift += 7
	}
}

// DecodeInt32 reads a signed 32-bit integer from r.
func DecodeInt32(r *bytes.Reader) (int32, uint64, error) {
	var ret int32
	var shift uint
	var num uint64
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, unexpectedEOF(err)
		}
		if num >= maxVarintLen32 {
			return 0, 0, ErrOverflow32
		}
		ret |= int32(b&0x7f) << shift
		num++
		if b&0x80 == 0 {
			if num == maxVarintLen32 {
				switch {
				case b&0x08 == 0 && b&0x70 != 0,
					b&0x08 != 0 && b&0x70 != 0x70:
					return 0, 0, ErrOverflow32
				}
			}
			if shift+7 < 32 && b&0x40 != 0 {
				ret |= -1 << (shift + 7)
			}
			return ret, num, nil
		}
		shift += 7
	}
}

// DecodeInt64 reads a signed 64-bit integer from r.
func DecodeInt64(r *bytes.Reader) (int64, uint64, error) {
	var ret int64
	var shift uint
	var num uint64
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, unexpectedEOF(err)
		}
		if num >= maxVarintLen64 {
			return 0, 0, ErrOverflow64
		}
		ret |= int64(b&0x7f) << shift
		num++
		if b&0x80 == 0 {
			if num == maxVarintLen64 && b != 0 && b != 0x7f {
				return 0, 0, ErrOverflow64
			}
			if shift+7 < 64 && b&0x40 != 0 {
				ret |= -1 << (shift + 7)
			}
			return ret, num, nil
		}
		shift += 7
	}
}

// DecodeInt33AsInt64 reads the 33-bit signed integer block-type encoding,
// widened to int64.
func DecodeInt33AsInt64(r *bytes.Reader) (int64, uint64, error) {
	var ret int64
	var shift uint
	var num uint64
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, unexpectedEOF(err)
		}
		if num >= maxVarintLen33 {
			return 0, 0, ErrOverflow33
		}
		ret |= int64(b&0x7f) << shift
		num++
		if b&0x80 == 0 {
			if num == maxVarintLen33 {
				switch {
				case b&0x10 == 0 && b&0x60 != 0,
					b&0x10 != 0 && b&0x60 != 0x60:
					return 0, 0, ErrOverflow33
				}
			}
			if shift+7 < 64 && b&0x40 != 0 {
				ret |= -1 << (shift + 7)
			}
			return ret, num, nil
		}
		shift += 7
	}
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
