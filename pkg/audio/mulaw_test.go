package audio

import "testing"

func TestMuLawDecode_Zero(t *testing.T) {
	// 0xFF and 0x7F encode positive and negative zero.
	if v := MuLawDecode(0xFF); v != 0 {
		t.Errorf("Expected 0 for 0xFF, got %d", v)
	}
	if v := MuLawDecode(0x7F); v != 0 {
		t.Errorf("Expected 0 for 0x7F, got %d", v)
	}
}

func TestMuLawEncode_Zero(t *testing.T) {
	if b := MuLawEncode(0); b != 0xFF {
		t.Errorf("Expected 0xFF for 0, got 0x%02X", b)
	}
}

func TestMuLawRoundTrip(t *testing.T) {
	// μ-law is lossy; the error is bounded by the segment step size.
	samples := []int16{0, 8, -8, 100, -100, 1000, -1000, 8000, -8000, 30000, -30000}

	for _, s := range samples {
		decoded := MuLawDecode(MuLawEncode(s))
		diff := int(decoded) - int(s)
		if diff < 0 {
			diff = -diff
		}
		bound := int(s) / 16
		if bound < 0 {
			bound = -bound
		}
		bound += 16
		if diff > bound {
			t.Errorf("Sample %d: decoded %d, error %d exceeds bound %d", s, decoded, diff, bound)
		}
	}
}

func TestMuLawDecodeTableSymmetry(t *testing.T) {
	// Bytes with and without the sign bit decode to negated values.
	for b := 0; b < 128; b++ {
		neg := MuLawDecode(byte(b))
		pos := MuLawDecode(byte(b | 0x80))
		if neg != -pos {
			t.Fatalf("Byte 0x%02X: %d is not the negation of %d", b, neg, pos)
		}
	}
}

func TestMuLawSliceConversions(t *testing.T) {
	pcm := []int16{0, 500, -500, 12000, -12000}
	encoded := PCMToMuLaw(pcm)
	if len(encoded) != len(pcm) {
		t.Fatalf("Expected %d bytes, got %d", len(pcm), len(encoded))
	}

	decoded := MuLawToPCM(encoded)
	if len(decoded) != len(pcm) {
		t.Fatalf("Expected %d samples, got %d", len(pcm), len(decoded))
	}
	for i := range pcm {
		if decoded[i] != MuLawDecode(MuLawEncode(pcm[i])) {
			t.Errorf("Sample %d: slice and scalar conversion disagree", i)
		}
	}
}
