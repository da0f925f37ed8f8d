// Package rtptime converts between nanoseconds, sample counts and RTP
// timestamp units at a declared sample rate, and between time.Time and the
// NTP 64-bit fixed-point format RTCP reports carry.
//
// Grounded on gortsplib's pkg/rtptime (Decoder/Encoder, the split-division
// technique used to avoid int64 overflow while preserving resolution) and
// pkg/ntp (Encode/Decode).
package rtptime

import (
	"math"
	"time"
)

// negativeThreshold is the wrap-around boundary used to tell a forward
// 32-bit timestamp difference from a backward (wrapped) one.
const negativeThreshold = 0xFFFFFFFF / 2

// NsToSamples converts a duration in nanoseconds to a sample count at the
// given sample rate, rounding to the nearest sample.
func NsToSamples(d time.Duration, sampleRate uint32) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(math.Round(float64(d) * float64(sampleRate) / float64(time.Second)))
}

// SamplesToNs converts a sample count at the given sample rate to a
// duration in nanoseconds.
func SamplesToNs(samples uint64, sampleRate uint32) time.Duration {
	if sampleRate == 0 {
		return 0
	}
	// split the division into an integer and a fractional part to avoid
	// overflowing an int64 nanosecond count for large sample counts.
	secs := samples / uint64(sampleRate)
	rem := samples % uint64(sampleRate)
	return time.Duration(secs)*time.Second +
		time.Duration(rem)*time.Second/time.Duration(sampleRate)
}

// NsTo32 converts a duration in nanoseconds to a 32-bit RTP timestamp
// delta at the given sample rate, wrapping modulo 2^32.
func NsTo32(d time.Duration, sampleRate uint32) uint32 {
	return uint32(NsToSamples(d, sampleRate))
}

// Stamp32Diff returns the signed difference b-a between two 32-bit RTP
// timestamps, correctly handling wraparound.
func Stamp32Diff(a, b uint32) int64 {
	diff := b - a
	if diff > negativeThreshold {
		return -int64(a - b)
	}
	return int64(diff)
}

// Seq16Diff returns the signed difference b-a between two 16-bit sequence
// numbers, correctly handling wraparound.
func Seq16Diff(a, b uint16) int32 {
	return int32(int16(b - a))
}

// Decoder accumulates 32-bit RTP timestamp deltas into an unwrapped
// time.Duration, the way a depacketizer tracks stream position across
// packets whose 32-bit timestamp wraps roughly every 13 hours at 94kHz.
type Decoder struct {
	clockRate   time.Duration
	initialized bool
	overall     time.Duration
	prev        uint32
}

// NewDecoder allocates a Decoder for the given sample rate.
func NewDecoder(sampleRate int) *Decoder {
	return &Decoder{clockRate: time.Duration(sampleRate)}
}

// Decode folds a new 32-bit timestamp into the running unwrapped duration.
func (d *Decoder) Decode(ts uint32) time.Duration {
	if !d.initialized {
		d.initialized = true
		d.prev = ts
		return 0
	}

	diff := ts - d.prev
	if diff > negativeThreshold {
		diff = d.prev - ts
		d.prev = ts
		d.overall -= time.Duration(diff)
	} else {
		d.prev = ts
		d.overall += time.Duration(diff)
	}

	secs := d.overall / d.clockRate
	dec := d.overall % d.clockRate
	return secs*time.Second + dec*time.Second/d.clockRate
}

// ntpEpochOffset is the number of seconds between the NTP epoch (1900) and
// the Unix epoch (1970).
const ntpEpochOffset = 2208988800

// EncodeNTP encodes a time.Time into the 64-bit NTP fixed-point format
// used by RTCP SR and XR RRTR blocks (RFC 3550 section 4).
func EncodeNTP(t time.Time) uint64 {
	total := uint64(t.UnixNano()) + ntpEpochOffset*1_000_000_000
	secs := total / 1_000_000_000
	frac := uint64(math.Round(float64((total%1_000_000_000)*(1<<32)) / 1_000_000_000))
	return secs<<32 | frac
}

// DecodeNTP decodes a 64-bit NTP timestamp into a time.Time.
func DecodeNTP(v uint64) time.Time {
	secs := int64(v>>32) - ntpEpochOffset
	nanos := int64(math.Round(float64((v&0xFFFFFFFF)*1_000_000_000) / (1 << 32)))
	return time.Unix(secs, nanos)
}

// MiddleNTP extracts the middle 32 bits of a 64-bit NTP timestamp, the
// value carried as LastSenderReport in a receiver report and as the
// referenced timestamp in a DLRR subblock.
func MiddleNTP(v uint64) uint32 {
	return uint32(v >> 16)
}

// EncodeDelaySince encodes a duration as a 32-bit fixed-point number of
// seconds in 1/65536ths, the unit RTCP uses for Delay and DLRR fields.
func EncodeDelaySince(d time.Duration) uint32 {
	if d < 0 {
		d = 0
	}
	return uint32(d.Seconds() * 65536)
}

// DecodeDelaySince decodes a 32-bit 1/65536-second fixed-point duration.
func DecodeDelaySince(v uint32) time.Duration {
	return time.Duration(float64(v) / 65536 * float64(time.Second))
}
