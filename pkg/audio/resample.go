package audio

import "encoding/binary"

// Resample converts samples between rates with linear interpolation.
// The output holds round(len*toRate/fromRate) samples. Non-positive rates
// yield an empty slice.
func Resample(samples []int16, fromRate, toRate int) []int16 {
	if fromRate <= 0 || toRate <= 0 || len(samples) == 0 {
		return []int16{}
	}
	if fromRate == toRate {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out
	}

	outLen := (len(samples)*toRate + fromRate/2) / fromRate
	out := make([]int16, outLen)
	ratio := float64(fromRate) / float64(toRate)
	last := len(samples) - 1

	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= last {
			out[i] = samples[last]
			continue
		}
		frac := pos - float64(idx)
		a, b := float64(samples[idx]), float64(samples[idx+1])
		out[i] = int16(a + (b-a)*frac)
	}
	return out
}

// PCM16LEToSamples unpacks little-endian 16-bit PCM. A trailing odd byte is ignored.
func PCM16LEToSamples(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}

func SamplesToPCM16LE(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
