package codec

import (
	"encoding/binary"
	"errors"
	"math"
	"nav-command/message"
	"testing"
)

func sameFloat(a, b float64) bool {
	return math.Float64bits(a) == math.Float64bits(b)
}

func TestBinaryCodecRoundTrip(t *testing.T) {
	binaryCodec := NewBinaryCodec()

	cases := []struct {
		name string
		rec  message.CommandRecord
	}{
		{"reference", message.CommandRecord{Mode: 1, A: 100, B: 101, C: 102}},
		{"zero", message.CommandRecord{}},
		{"negative mode", message.CommandRecord{Mode: -7, A: -1.5, B: 2.25, C: -3.125}},
		{"min mode", message.CommandRecord{Mode: math.MinInt32, A: math.MaxFloat64, B: math.SmallestNonzeroFloat64, C: -math.MaxFloat64}},
		{"negative zero", message.CommandRecord{Mode: 0, A: math.Copysign(0, -1), B: 0, C: math.Copysign(0, -1)}},
		{"infinities", message.CommandRecord{Mode: 3, A: math.Inf(1), B: math.Inf(-1), C: 1}},
		{"nan", message.CommandRecord{Mode: 4, A: math.NaN(), B: math.NaN(), C: math.NaN()}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := binaryCodec.Encode(&tc.rec)
			if err != nil {
				t.Fatalf("BinaryCodec Encode failed: %v", err)
			}
			if len(data) != message.RecordSize {
				t.Fatalf("expect %d bytes, got %d", message.RecordSize, len(data))
			}

			var decoded message.CommandRecord
			if err := binaryCodec.Decode(data, &decoded); err != nil {
				t.Fatalf("BinaryCodec Decode failed: %v", err)
			}

			if decoded.Mode != tc.rec.Mode {
				t.Errorf("Mode mismatch: got %d, want %d", decoded.Mode, tc.rec.Mode)
			}
			if !sameFloat(decoded.A, tc.rec.A) || !sameFloat(decoded.B, tc.rec.B) || !sameFloat(decoded.C, tc.rec.C) {
				t.Errorf("Float mismatch: got %v, want %v", decoded, tc.rec)
			}
		})
	}
}

func TestBinaryCodecLayout(t *testing.T) {
	binaryCodec := &BinaryCodec{Order: binary.LittleEndian}

	data, err := binaryCodec.Encode(&message.CommandRecord{Mode: 1, A: 100, B: 101, C: 102})
	if err != nil {
		t.Fatalf("BinaryCodec Encode failed: %v", err)
	}

	if got := binary.LittleEndian.Uint32(data[0:4]); got != 1 {
		t.Errorf("mode at offset 0: got %d, want 1", got)
	}
	offsets := []struct {
		at   int
		want float64
	}{{4, 100}, {12, 101}, {20, 102}}
	for _, o := range offsets {
		got := math.Float64frombits(binary.LittleEndian.Uint64(data[o.at : o.at+8]))
		if got != o.want {
			t.Errorf("float at offset %d: got %v, want %v", o.at, got, o.want)
		}
	}
}

func TestBinaryCodecNativeOrderByDefault(t *testing.T) {
	native := NewBinaryCodec()
	zeroValue := &BinaryCodec{}
	rec := &message.CommandRecord{Mode: 0x01020304, A: 1}

	a, _ := native.Encode(rec)
	b, _ := zeroValue.Encode(rec)
	if string(a) != string(b) {
		t.Fatal("zero-value BinaryCodec should use the native byte order")
	}
	if got := binary.NativeEndian.Uint32(a[0:4]); got != 0x01020304 {
		t.Fatalf("expect native-order mode, got %#x", got)
	}
}

func TestBinaryCodecDecodeWrongSize(t *testing.T) {
	binaryCodec := NewBinaryCodec()

	var rec message.CommandRecord
	for _, n := range []int{0, 27, 29, 100} {
		err := binaryCodec.Decode(make([]byte, n), &rec)
		if !errors.Is(err, ErrRecordSize) {
			t.Errorf("size %d: expect ErrRecordSize, got %v", n, err)
		}
	}
}

func TestJSONCodec(t *testing.T) {
	jsonCodec := &JSONCodec{}

	var rec message.CommandRecord
	if err := jsonCodec.Decode([]byte(`{"mode":-2,"a":1.5,"b":0,"c":-3}`), &rec); err != nil {
		t.Fatalf("JSONCodec Decode failed: %v", err)
	}
	want := message.CommandRecord{Mode: -2, A: 1.5, B: 0, C: -3}
	if rec != want {
		t.Fatalf("expect %v, got %v", want, rec)
	}

	data, err := jsonCodec.Encode(&rec)
	if err != nil {
		t.Fatalf("JSONCodec Encode failed: %v", err)
	}
	var again message.CommandRecord
	if err := jsonCodec.Decode(data, &again); err != nil {
		t.Fatalf("JSONCodec Decode failed: %v", err)
	}
	if again != rec {
		t.Fatalf("expect %v, got %v", rec, again)
	}
}
