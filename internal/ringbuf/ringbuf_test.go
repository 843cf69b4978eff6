package ringbuf

import "testing"

func TestNewRoundsUpToPowerOfTwo(t *testing.T) {
	cases := []struct {
		min  int
		want int
	}{
		{1, 1},
		{3, 4},
		{8192 * 40, 1 << 19},
		{3072 * 8, 1 << 15},
	}
	for _, c := range cases {
		r := New(c.min)
		if r.Cap() != c.want {
			t.Errorf("New(%d).Cap() = %d, want %d", c.min, r.Cap(), c.want)
		}
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	r := New(16)
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if n := r.Write(data); n != len(data) {
		t.Fatalf("Write = %d, want %d", n, len(data))
	}
	if got := r.Readable(); got != len(data) {
		t.Fatalf("Readable = %d, want %d", got, len(data))
	}
	out := make([]byte, len(data))
	if n := r.Read(out); n != len(data) {
		t.Fatalf("Read = %d, want %d", n, len(data))
	}
	for i := range data {
		if out[i] != data[i] {
			t.Fatalf("out[%d] = %d, want %d", i, out[i], data[i])
		}
	}
}

func TestWriteStopsAtCapacity(t *testing.T) {
	r := New(8)
	n := r.Write(make([]byte, 100))
	if n != r.Cap() {
		t.Fatalf("Write short-wrote %d, want full capacity %d", n, r.Cap())
	}
	if r.Writable() != 0 {
		t.Fatalf("Writable = %d, want 0", r.Writable())
	}
}

func TestReadStopsAtAvailable(t *testing.T) {
	r := New(8)
	r.Write([]byte{1, 2, 3})
	out := make([]byte, 10)
	n := r.Read(out)
	if n != 3 {
		t.Fatalf("Read = %d, want 3", n)
	}
}

func TestWrapAround(t *testing.T) {
	r := New(4) // capacity 4
	r.Write([]byte{1, 2, 3})
	out := make([]byte, 3)
	r.Read(out)
	// Producer index has advanced 3, consumer 3: writing again should wrap.
	r.Write([]byte{4, 5, 6})
	got := make([]byte, 3)
	n := r.Read(got)
	if n != 3 || got[0] != 4 || got[1] != 5 || got[2] != 6 {
		t.Fatalf("after wrap, Read = %v (n=%d), want [4 5 6]", got, n)
	}
}

func TestOccupancyEWMA(t *testing.T) {
	o := NewOccupancy(300)
	o.Reset(1536)
	for i := 0; i < 1000; i++ {
		o.Update(1536)
	}
	if v := o.Value(); v < 1535.9 || v > 1536.1 {
		t.Fatalf("steady-state EWMA = %v, want ~1536", v)
	}

	o.Reset(0)
	if o.Value() != 0 {
		t.Fatalf("Reset(0) left avg = %v, want 0", o.Value())
	}
}
