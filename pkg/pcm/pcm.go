// Package pcm converts sample buffers between PCM subformats and the
// internal raw float32 representation. At least one side of any
// conversion is raw float; to convert between two non-raw formats, the
// caller composes two mappers (raw is the pivot format).
package pcm

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/roc-streaming/roc-toolkit-sub001/pkg/samplespec"
)

// ToRaw decodes n interleaved samples of the given PCM subformat from src
// into dst (which must have length >= n), saturating narrowing
// conversions never apply here since raw float32 cannot narrow.
func ToRaw(sub samplespec.PcmSubformat, src []byte, dst []float32) (int, error) {
	width := subformatWidth(sub)
	if width == 0 {
		return 0, fmt.Errorf("pcm: unsupported subformat %v", sub)
	}
	n := len(src) / width
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = decodeOne(sub, src[i*width:(i+1)*width])
	}
	return n, nil
}

// FromRaw encodes n samples from src into dst in the given PCM subformat,
// saturating on narrowing conversions. dst must have length >=
// n*width(sub).
func FromRaw(sub samplespec.PcmSubformat, src []float32, dst []byte) (int, error) {
	width := subformatWidth(sub)
	if width == 0 {
		return 0, fmt.Errorf("pcm: unsupported subformat %v", sub)
	}
	n := len(dst) / width
	if n > len(src) {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		encodeOne(sub, src[i], dst[i*width:(i+1)*width])
	}
	return n, nil
}

// Convert converts between two PCM subformats by pivoting through raw
// float32. scratch, if non-nil and large enough, is reused to avoid an
// allocation on the hot path; otherwise one is allocated.
func Convert(from, to samplespec.PcmSubformat, src []byte, dst []byte, scratch []float32) (int, error) {
	fw := subformatWidth(from)
	if fw == 0 {
		return 0, fmt.Errorf("pcm: unsupported source subformat %v", from)
	}
	n := len(src) / fw
	if cap(scratch) < n {
		scratch = make([]float32, n)
	} else {
		scratch = scratch[:n]
	}
	if _, err := ToRaw(from, src, scratch); err != nil {
		return 0, err
	}
	return FromRaw(to, scratch, dst)
}

func subformatWidth(sub samplespec.PcmSubformat) int {
	switch sub {
	case samplespec.PcmSInt8, samplespec.PcmUInt8:
		return 1
	case samplespec.PcmSInt16LE, samplespec.PcmSInt16BE, samplespec.PcmUInt16LE, samplespec.PcmUInt16BE:
		return 2
	case samplespec.PcmSInt18LE3, samplespec.PcmSInt18BE3,
		samplespec.PcmSInt20LE3, samplespec.PcmSInt20BE3,
		samplespec.PcmSInt24LE3, samplespec.PcmSInt24BE3:
		return 3
	case samplespec.PcmSInt18LE4, samplespec.PcmSInt18BE4,
		samplespec.PcmSInt20LE4, samplespec.PcmSInt20BE4,
		samplespec.PcmSInt24LE4, samplespec.PcmSInt24BE4,
		samplespec.PcmSInt32LE, samplespec.PcmSInt32BE,
		samplespec.PcmFloat32LE, samplespec.PcmFloat32BE:
		return 4
	case samplespec.PcmSInt64LE, samplespec.PcmSInt64BE,
		samplespec.PcmFloat64LE, samplespec.PcmFloat64BE:
		return 8
	default:
		return 0
	}
}

func clamp32(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// decodeOne decodes a single sample of width subformatWidth(sub) into the
// range [-1, 1].
func decodeOne(sub samplespec.PcmSubformat, b []byte) float32 {
	switch sub {
	case samplespec.PcmSInt8:
		return float32(int8(b[0])) / 128
	case samplespec.PcmUInt8:
		return float32(int(b[0])-128) / 128
	case samplespec.PcmSInt16LE:
		return float32(int16(binary.LittleEndian.Uint16(b))) / 32768
	case samplespec.PcmSInt16BE:
		return float32(int16(binary.BigEndian.Uint16(b))) / 32768
	case samplespec.PcmUInt16LE:
		return float32(int32(binary.LittleEndian.Uint16(b))-32768) / 32768
	case samplespec.PcmUInt16BE:
		return float32(int32(binary.BigEndian.Uint16(b))-32768) / 32768
	case samplespec.PcmSInt18LE3:
		return decodeSignedLE(b, 18) / (1 << 17)
	case samplespec.PcmSInt18BE3:
		return decodeSignedBE(b, 18) / (1 << 17)
	case samplespec.PcmSInt20LE3:
		return decodeSignedLE(b, 20) / (1 << 19)
	case samplespec.PcmSInt20BE3:
		return decodeSignedBE(b, 20) / (1 << 19)
	case samplespec.PcmSInt24LE3:
		return decodeSignedLE(b, 24) / (1 << 23)
	case samplespec.PcmSInt24BE3:
		return decodeSignedBE(b, 24) / (1 << 23)
	case samplespec.PcmSInt18LE4, samplespec.PcmSInt20LE4, samplespec.PcmSInt24LE4:
		v := int32(binary.LittleEndian.Uint32(b))
		return float32(v) / (1 << 23)
	case samplespec.PcmSInt18BE4, samplespec.PcmSInt20BE4, samplespec.PcmSInt24BE4:
		v := int32(binary.BigEndian.Uint32(b))
		return float32(v) / (1 << 23)
	case samplespec.PcmSInt32LE:
		return float32(int32(binary.LittleEndian.Uint32(b))) / (1 << 31)
	case samplespec.PcmSInt32BE:
		return float32(int32(binary.BigEndian.Uint32(b))) / (1 << 31)
	case samplespec.PcmSInt64LE:
		return float32(int64(binary.LittleEndian.Uint64(b))) / (1 << 63)
	case samplespec.PcmSInt64BE:
		return float32(int64(binary.BigEndian.Uint64(b))) / (1 << 63)
	case samplespec.PcmFloat32LE:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case samplespec.PcmFloat32BE:
		return math.Float32frombits(binary.BigEndian.Uint32(b))
	case samplespec.PcmFloat64LE:
		return float32(math.Float64frombits(binary.LittleEndian.Uint64(b)))
	case samplespec.PcmFloat64BE:
		return float32(math.Float64frombits(binary.BigEndian.Uint64(b)))
	default:
		return 0
	}
}

func encodeOne(sub samplespec.PcmSubformat, v float32, b []byte) {
	v = clamp32(v)
	switch sub {
	case samplespec.PcmSInt8:
		b[0] = byte(int8(v * 127))
	case samplespec.PcmUInt8:
		b[0] = byte(int(v*127) + 128)
	case samplespec.PcmSInt16LE:
		binary.LittleEndian.PutUint16(b, uint16(int16(v*32767)))
	case samplespec.PcmSInt16BE:
		binary.BigEndian.PutUint16(b, uint16(int16(v*32767)))
	case samplespec.PcmUInt16LE:
		binary.LittleEndian.PutUint16(b, uint16(int32(v*32767)+32768))
	case samplespec.PcmUInt16BE:
		binary.BigEndian.PutUint16(b, uint16(int32(v*32767)+32768))
	case samplespec.PcmSInt18LE3:
		encodeSignedLE(b, int32(v*(1<<17-1)), 18)
	case samplespec.PcmSInt18BE3:
		encodeSignedBE(b, int32(v*(1<<17-1)), 18)
	case samplespec.PcmSInt20LE3:
		encodeSignedLE(b, int32(v*(1<<19-1)), 20)
	case samplespec.PcmSInt20BE3:
		encodeSignedBE(b, int32(v*(1<<19-1)), 20)
	case samplespec.PcmSInt24LE3:
		encodeSignedLE(b, int32(v*(1<<23-1)), 24)
	case samplespec.PcmSInt24BE3:
		encodeSignedBE(b, int32(v*(1<<23-1)), 24)
	case samplespec.PcmSInt18LE4, samplespec.PcmSInt20LE4, samplespec.PcmSInt24LE4:
		binary.LittleEndian.PutUint32(b, uint32(int32(v*(1<<23-1))))
	case samplespec.PcmSInt18BE4, samplespec.PcmSInt20BE4, samplespec.PcmSInt24BE4:
		binary.BigEndian.PutUint32(b, uint32(int32(v*(1<<23-1))))
	case samplespec.PcmSInt32LE:
		binary.LittleEndian.PutUint32(b, uint32(int32(float64(v)*(1<<31-1))))
	case samplespec.PcmSInt32BE:
		binary.BigEndian.PutUint32(b, uint32(int32(float64(v)*(1<<31-1))))
	case samplespec.PcmSInt64LE:
		binary.LittleEndian.PutUint64(b, uint64(int64(float64(v)*(1<<63-1))))
	case samplespec.PcmSInt64BE:
		binary.BigEndian.PutUint64(b, uint64(int64(float64(v)*(1<<63-1))))
	case samplespec.PcmFloat32LE:
		binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	case samplespec.PcmFloat32BE:
		binary.BigEndian.PutUint32(b, math.Float32bits(v))
	case samplespec.PcmFloat64LE:
		binary.LittleEndian.PutUint64(b, math.Float64bits(float64(v)))
	case samplespec.PcmFloat64BE:
		binary.BigEndian.PutUint64(b, math.Float64bits(float64(v)))
	}
}

// decodeSignedLE/BE decode a sign-extended little/big-endian integer of
// `bits` width packed into the 3 low bytes of a 24-bit-wide 3-byte buffer.
func decodeSignedLE(b []byte, bits int) float32 {
	v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	v = signExtend(v, 24)
	_ = bits
	return float32(v)
}

func decodeSignedBE(b []byte, bits int) float32 {
	v := int32(b[2]) | int32(b[1])<<8 | int32(b[0])<<16
	v = signExtend(v, 24)
	_ = bits
	return float32(v)
}

func encodeSignedLE(b []byte, v int32, bits int) {
	_ = bits
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

func encodeSignedBE(b []byte, v int32, bits int) {
	_ = bits
	b[2] = byte(v)
	b[1] = byte(v >> 8)
	b[0] = byte(v >> 16)
}

func signExtend(v int32, bits int) int32 {
	shift := 32 - bits
	return (v << shift) >> shift
}
