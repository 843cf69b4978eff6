package playback

import (
	"math"
	"testing"

	"mixerbridge/internal/feedback"
	"mixerbridge/internal/ringbuf"
)

func TestFillSendsSilenceWhenRBEmpty(t *testing.T) {
	rb := ringbuf.New(RBBytesPerFrame * BaselineFrames * 4)
	var acc feedback.Accumulator
	enc := New(rb, &acc)

	data, lengths := enc.Fill()
	if len(data) != BaselineFrames*WireBytesPerFrame {
		t.Fatalf("len(data) = %d, want %d", len(data), BaselineFrames*WireBytesPerFrame)
	}
	for _, b := range data {
		if b != 0 {
			t.Fatalf("expected silence, found nonzero byte")
		}
	}
	if lengths[Packets-1] != BaselinePacketSz {
		t.Fatalf("last packet length = %d, want %d", lengths[Packets-1], BaselinePacketSz)
	}
	if enc.SilenceCount != 1 {
		t.Fatalf("SilenceCount = %d, want 1", enc.SilenceCount)
	}
}

func TestFillTransferSizeBounds(t *testing.T) {
	valid := map[int]bool{2874: true, 2880: true, 2886: true}
	validLast := map[int]bool{66: true, 72: true, 78: true}

	for _, sd := range []int{-1, 0, 1} {
		frames := BaselineFrames + sd
		total := frames * WireBytesPerFrame
		last := BaselinePacketSz + sd*WireBytesPerFrame
		if !valid[total] {
			t.Fatalf("sd=%d: transfer size %d not in allowed set", sd, total)
		}
		if !validLast[last] {
			t.Fatalf("sd=%d: last packet size %d not in allowed set", sd, last)
		}
	}
}

func TestFillEncodesFromRB(t *testing.T) {
	rb := ringbuf.New(RBBytesPerFrame * BaselineFrames * 4)
	var acc feedback.Accumulator
	enc := New(rb, &acc)

	// Fill RB with a known stereo value repeated for a full baseline transfer.
	buf := make([]byte, BaselineFrames*RBBytesPerFrame)
	val := float32(0.25)
	bits := math.Float32bits(val)
	for i := 0; i < BaselineFrames*Channels; i++ {
		buf[i*4+0] = byte(bits)
		buf[i*4+1] = byte(bits >> 8)
		buf[i*4+2] = byte(bits >> 16)
		buf[i*4+3] = byte(bits >> 24)
	}
	rb.Write(buf)

	data, _ := enc.Fill()
	if len(data) != BaselineFrames*WireBytesPerFrame {
		t.Fatalf("len(data) = %d, want %d", len(data), BaselineFrames*WireBytesPerFrame)
	}

	want := int32(val*float32(intMax)) >> 8
	got := int32(uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16)
	// sign-extend 24-bit to 32-bit for comparison
	if got&0x800000 != 0 {
		got |= ^int32(0xFFFFFF)
	}
	if got != want {
		t.Fatalf("encoded sample = %d, want %d", got, want)
	}

	if rb.Readable() != 0 {
		t.Fatalf("RB should be fully drained, %d bytes remain", rb.Readable())
	}
}

func TestFillAppliesFeedbackCorrection(t *testing.T) {
	rb := ringbuf.New(RBBytesPerFrame * (BaselineFrames + 1) * 4)
	var acc feedback.Accumulator
	acc.Add(make([]byte, 6)) // sum 0, delta = -576 -> sd should end up -1
	enc := New(rb, &acc)

	buf := make([]byte, (BaselineFrames+1)*RBBytesPerFrame)
	rb.Write(buf)

	data, lengths := enc.Fill()
	wantFrames := BaselineFrames - 1
	if len(data) != wantFrames*WireBytesPerFrame {
		t.Fatalf("len(data) = %d, want %d (sd=-1)", len(data), wantFrames*WireBytesPerFrame)
	}
	if lengths[Packets-1] != BaselinePacketSz-WireBytesPerFrame {
		t.Fatalf("last packet = %d, want %d", lengths[Packets-1], BaselinePacketSz-WireBytesPerFrame)
	}
}
