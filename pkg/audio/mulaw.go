// Package audio holds the codec primitives used on the telephony leg:
// G.711 μ-law, linear resampling, WAV framing and fixed-size frame splitting.
package audio

const (
	// MulawSampleRate is the only rate the media stream carries.
	MulawSampleRate = 8000
	// MulawSilence is the μ-law encoding of a zero sample.
	MulawSilence byte = 0xFF

	mulawBias = 0x84
	mulawClip = 32635
)

// DecodeMulawSample expands a single μ-law byte to a linear 16-bit sample.
func DecodeMulawSample(b byte) int16 {
	u := ^b
	sign := u & 0x80
	exponent := (u >> 4) & 0x07
	mantissa := u & 0x0F

	value := (int(mantissa)<<3 + mulawBias) << exponent
	value -= mulawBias
	if sign != 0 {
		return int16(-value)
	}
	return int16(value)
}

// EncodeMulawSample compresses a linear 16-bit sample to μ-law.
func EncodeMulawSample(s int16) byte {
	sample := int(s)
	var sign int
	if sample < 0 {
		sample = -sample
		sign = 0x80
	}
	if sample > mulawClip {
		sample = mulawClip
	}
	sample += mulawBias

	exponent := 7
	for mask := 0x4000; sample&mask == 0 && exponent > 0; mask >>= 1 {
		exponent--
	}
	mantissa := (sample >> (exponent + 3)) & 0x0F

	return ^byte(sign | exponent<<4 | mantissa)
}

func DecodeMulaw(frame []byte) []int16 {
	out := make([]int16, len(frame))
	for i, b := range frame {
		out[i] = DecodeMulawSample(b)
	}
	return out
}

func EncodeMulaw(samples []int16) []byte {
	out := make([]byte, len(samples))
	for i, s := range samples {
		out[i] = EncodeMulawSample(s)
	}
	return out
}
