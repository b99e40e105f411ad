// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package worker_test

import (
	"testing"

	"code.hybscloud.com/dataplane/worker"
)

func TestEventFDSignalDrainRoundTrip(t *testing.T) {
	fd, err := worker.NewEventFD()
	if err != nil {
		t.Fatalf("NewEventFD: %v", err)
	}
	defer worker.CloseEventFD(fd)

	if err := worker.SignalEventFD(fd); err != nil {
		t.Fatalf("SignalEventFD: %v", err)
	}
	if err := worker.DrainEventFD(fd); err != nil {
		t.Fatalf("DrainEventFD: %v", err)
	}
	// A second drain on a non-blocking, already-drained eventfd returns
	// EAGAIN internally, which DrainEventFD treats as success (no new
	// data, nothing to do).
	if err := worker.DrainEventFD(fd); err != nil {
		t.Fatalf("second DrainEventFD: %v", err)
	}
}

func TestShmSegmentMapsRequestedSize(t *testing.T) {
	seg, err := worker.NewShmSegment("dataplane-test", 4096)
	if err != nil {
		t.Fatalf("NewShmSegment: %v", err)
	}
	defer seg.Close()

	if uint64(len(seg.Base)) != seg.Size {
		t.Fatalf("mapped %d bytes, want %d", len(seg.Base), seg.Size)
	}
	seg.Base[0] = 0xAB
	if seg.Base[0] != 0xAB {
		t.Fatal("write to mapped segment did not stick")
	}
	if err := seg.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
