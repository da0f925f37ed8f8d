package rtcpwire

import "time"

// ComputeRTT implements spec.md section 4.12's round-trip-time formula:
// given the local send time of a report that carried a timestamp, the
// local receive time of the remote reply, and the delay the remote side
// says it held the reply before sending (a DLRR/delay_since_last_SR
// value), the round trip is whatever time elapsed in between, minus the
// remote hold time.
//
// Used symmetrically: at the sender with an SR/RR pair (T_sr, T_rr,
// delay_since_last_SR), and at the receiver with an RRTR/DLRR pair
// (T_rrtr, T_read, d).
func ComputeRTT(sentAt, receivedAt time.Time, remoteDelay time.Duration) time.Duration {
	rtt := receivedAt.Sub(sentAt) - remoteDelay
	if rtt < 0 {
		return 0
	}
	return rtt
}
