// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"net"
	"net/rpc"
	"testing"

	"github.com/oorexx/corexx/internal/activity"
	"github.com/oorexx/corexx/internal/heap"
	"github.com/oorexx/corexx/program/server"
)

// dialServer starts a server.Server on an in-memory pipe and returns a
// Remote connected to it, grounded on the net/rpc "serve one connection"
// pattern net/rpc/server_test.go itself uses.
func dialServer(t *testing.T) *Remote {
	t.Helper()

	h := heap.New(heap.Options{SegmentQuantum: 4096, SingleObjectThreshold: 1024})
	mgr := activity.NewManager(h)
	act := mgr.NewActivity(1)
	act.PushFrame(activity.NewFrame(activity.FrameProgram, "MAIN", "test.rex"))
	srv := server.New(h, act, "test.rex", nil)

	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName("Server", srv); err != nil {
		t.Fatalf("RegisterName: %v", err)
	}

	clientConn, serverConn := net.Pipe()
	go rpcServer.ServeConn(serverConn)
	t.Cleanup(func() { clientConn.Close() })

	return NewFromClient(rpc.NewClient(clientConn))
}

func TestRemoteHeapStats(t *testing.T) {
	r := dialServer(t)

	stats, err := r.HeapStats()
	if err != nil {
		t.Fatalf("HeapStats: %v", err)
	}
	if stats.LiveObjects != 0 {
		t.Fatalf("LiveObjects = %d, want 0", stats.LiveObjects)
	}
}

func TestRemoteFrames(t *testing.T) {
	r := dialServer(t)

	frames, err := r.Frames(0)
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
}

func TestRemoteEvalFrame(t *testing.T) {
	r := dialServer(t)

	result, err := r.Eval("frame:0")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("got %d results, want 1", len(result))
	}
}

func TestRemoteSaveImageRoundTrip(t *testing.T) {
	r := dialServer(t)

	data, err := r.SaveImage()
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if err := r.RestoreImage(data); err != nil {
		t.Fatalf("RestoreImage: %v", err)
	}
}

func TestRemoteOpenReadCloseTraceFile(t *testing.T) {
	r := dialServer(t)

	f, err := r.Open("trace", "r")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	buf := make([]byte, 4096)
	n, err := f.ReadAt(buf, 0)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if n == 0 {
		t.Fatalf("expected non-empty traceback")
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
