// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package client provides remote access to a corexx introspection server.
package client

import (
	"net/rpc"

	"github.com/oorexx/corexx/program"
	"github.com/oorexx/corexx/program/proxyrpc"
)

var _ program.Introspector = (*Remote)(nil)
var _ program.File = (*File)(nil)

// Dial connects to a corexx server (started with cmd/corexx serve)
// listening on network/address, e.g. Dial("tcp", "localhost:9999").
func Dial(network, address string) (*Remote, error) {
	c, err := rpc.Dial(network, address)
	if err != nil {
		return nil, err
	}
	return &Remote{client: c}, nil
}

// NewFromClient wraps an already-connected net/rpc client, e.g. one
// obtained over a pipe to a subprocess rather than a TCP dial.
func NewFromClient(c *rpc.Client) *Remote {
	return &Remote{client: c}
}

// Remote implements program.Introspector against a server.Server reached
// over net/rpc.
type Remote struct {
	client *rpc.Client
}

// Close closes the underlying RPC connection.
func (r *Remote) Close() error {
	return r.client.Close()
}

func (r *Remote) Open(name string, mode string) (program.File, error) {
	req := proxyrpc.OpenRequest{
		Name: name,
		Mode: mode,
	}
	var resp proxyrpc.OpenResponse
	err := r.client.Call("Server.Open", &req, &resp)
	if err != nil {
		return nil, err
	}
	return &File{remote: r, fd: resp.FD}, nil
}

func (r *Remote) Eval(expr string) ([]string, error) {
	req := proxyrpc.EvalRequest{Expr: expr}
	var resp proxyrpc.EvalResponse
	err := r.client.Call("Server.Eval", &req, &resp)
	return resp.Result, err
}

func (r *Remote) Frames(count int) ([]program.Frame, error) {
	req := proxyrpc.FramesRequest{Count: count}
	var resp proxyrpc.FramesResponse
	if err := r.client.Call("Server.Frames", &req, &resp); err != nil {
		return nil, err
	}
	frames := make([]program.Frame, len(resp.Frames))
	for i, f := range resp.Frames {
		frames[i] = program.Frame{S: f.S}
	}
	return frames, nil
}

func (r *Remote) HeapStats() (program.HeapStats, error) {
	req := proxyrpc.HeapStatsRequest{}
	var resp proxyrpc.HeapStatsResponse
	err := r.client.Call("Server.HeapStats", &req, &resp)
	return program.HeapStats{LiveObjects: resp.LiveObjects, PendingUninits: resp.PendingUninits}, err
}

func (r *Remote) SaveImage() ([]byte, error) {
	req := proxyrpc.SaveImageRequest{}
	var resp proxyrpc.SaveImageResponse
	err := r.client.Call("Server.SaveImage", &req, &resp)
	return resp.Data, err
}

func (r *Remote) RestoreImage(data []byte) error {
	req := proxyrpc.RestoreImageRequest{Data: data}
	var resp proxyrpc.RestoreImageResponse
	return r.client.Call("Server.RestoreImage", &req, &resp)
}

// File implements the program.File interface, providing access to a
// virtual file opened on the server (spec.md §4.1.5's image, or the
// activation traceback).
type File struct {
	remote *Remote
	fd     int
}

func (f *File) ReadAt(p []byte, offset int64) (int, error) {
	req := proxyrpc.ReadAtRequest{
		FD:     f.fd,
		Len:    len(p),
		Offset: offset,
	}
	var resp proxyrpc.ReadAtResponse
	err := f.remote.client.Call("Server.ReadAt", &req, &resp)
	return copy(p, resp.Data), err
}

func (f *File) WriteAt(p []byte, offset int64) (int, error) {
	req := proxyrpc.WriteAtRequest{
		FD:     f.fd,
		Data:   p,
		Offset: offset,
	}
	var resp proxyrpc.WriteAtResponse
	err := f.remote.client.Call("Server.WriteAt", &req, &resp)
	return resp.Len, err
}

func (f *File) Close() error {
	req := proxyrpc.CloseRequest{FD: f.fd}
	var resp proxyrpc.CloseResponse
	return f.remote.client.Call("Server.Close", &req, &resp)
}
