package audio

import "testing"

func TestMulawSilence(t *testing.T) {
	if got := EncodeMulawSample(0); got != MulawSilence {
		t.Errorf("expected silence byte 0x%X, got 0x%X", MulawSilence, got)
	}
	if got := DecodeMulawSample(MulawSilence); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestMulawRoundTripWithinQuantizationStep(t *testing.T) {
	for x := -mulawClip; x <= mulawClip; x += 7 {
		got := int(DecodeMulawSample(EncodeMulawSample(int16(x))))
		diff := got - x
		if diff < 0 {
			diff = -diff
		}
		mag := x
		if mag < 0 {
			mag = -mag
		}
		limit := (mag+mulawBias)/32 + 1
		if diff > limit {
			t.Fatalf("sample %d decoded to %d, error %d exceeds %d", x, got, diff, limit)
		}
	}
}

func TestMulawSignSymmetry(t *testing.T) {
	for _, x := range []int16{1, 100, 1000, 8000, 30000} {
		pos := DecodeMulawSample(EncodeMulawSample(x))
		neg := DecodeMulawSample(EncodeMulawSample(-x))
		if pos != -neg {
			t.Errorf("asymmetric decode for %d: %d vs %d", x, pos, neg)
		}
	}
}

func TestMulawClipsExtremes(t *testing.T) {
	hi := DecodeMulawSample(EncodeMulawSample(32767))
	lo := DecodeMulawSample(EncodeMulawSample(-32768))
	if hi <= 30000 || lo >= -30000 {
		t.Errorf("unexpected clipped values %d / %d", hi, lo)
	}
}

func TestMulawSlices(t *testing.T) {
	if got := DecodeMulaw(nil); len(got) != 0 {
		t.Errorf("expected empty output, got %d samples", len(got))
	}
	if got := EncodeMulaw([]int16{}); len(got) != 0 {
		t.Errorf("expected empty output, got %d bytes", len(got))
	}

	in := []byte{0xFF, 0x7F, 0x00, 0x80, 0x12}
	samples := DecodeMulaw(in)
	if len(samples) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(samples))
	}
	back := EncodeMulaw(samples)
	for i := range in {
		// 0x7F and 0xFF both decode to zero, which re-encodes as 0xFF.
		if in[i] == 0x7F {
			continue
		}
		if back[i] != in[i] {
			t.Errorf("byte %d: expected 0x%X, got 0x%X", i, in[i], back[i])
		}
	}
}
