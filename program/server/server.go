// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package server provides RPC access to a corexx interpreter running in
// this process. It is the remote end of the client implementation of
// program.Introspector.
package server

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/oorexx/corexx/internal/activity"
	"github.com/oorexx/corexx/internal/heap"
	"github.com/oorexx/corexx/internal/nativeactivation"
	"github.com/oorexx/corexx/internal/value"
	"github.com/oorexx/corexx/program/proxyrpc"
)

// Server answers introspection RPCs against one interpreter. Every query
// that touches the activation stack or the heap is routed through run,
// the dedicated dispatch goroutine, rather than locking ad hoc: grounded
// on program/server/ptrace.go's ptraceRun, which serializes access to a
// single resource (there, an OS thread holding a ptrace attachment; here,
// the activity's kernel lock) through one goroutine reading an
// unbuffered channel.
type Server struct {
	h   *heap.Heap
	act *activity.Activity

	executable string
	vars       *nativeactivation.Pool // optional, for "sym:" lookups; nil if none registered

	mu    sync.Mutex
	files []*file // index == file descriptor

	fc chan func() error
	ec chan error
}

// New creates a Server that answers introspection queries against h and
// act, an Activity dedicated to running those queries (it is never used
// to execute Rexx code itself, only to hold the kernel lock while a
// query reads activation/heap state). vars is optional and enables
// "sym:" lookups in Eval; pass nil if no variable pool is registered.
func New(h *heap.Heap, act *activity.Activity, executable string, vars *nativeactivation.Pool) *Server {
	s := &Server{
		h:          h,
		act:        act,
		executable: executable,
		vars:       vars,
		fc:         make(chan func() error),
		ec:         make(chan error),
	}
	go s.run()
	return s
}

// run is the dedicated dispatch goroutine (see the Server doc comment).
func (s *Server) run() {
	for f := range s.fc {
		s.ec <- s.act.Run(f)
	}
}

// dispatch submits fn to run, under the activity's kernel lock, and
// waits for its result.
func (s *Server) dispatch(fn func() error) error {
	s.fc <- fn
	return <-s.ec
}

type file struct {
	name    string
	mode    string
	data    []byte // readable content, populated at Open time
	written []byte // accumulates WriteAt calls for a write-mode file
}

// Open opens a virtual file: "image" (the heap's flattened image) or
// "trace" (the current activation traceback, read-only).
func (s *Server) Open(req *proxyrpc.OpenRequest, resp *proxyrpc.OpenResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := &file{mode: req.Mode, name: req.Name}
	switch req.Name {
	case "image":
		if req.Mode == "r" || req.Mode == "rw" {
			var data []byte
			err := s.dispatch(func() error {
				d, err := s.h.SaveImage()
				data = d
				return err
			})
			if err != nil {
				return fmt.Errorf("Open: saving image: %v", err)
			}
			f.data = data
		}
	case "trace":
		if req.Mode != "r" {
			return fmt.Errorf("Open: %q is read-only", req.Name)
		}
		var lines []string
		err := s.dispatch(func() error {
			lines = s.act.Traceback()
			return nil
		})
		if err != nil {
			return err
		}
		f.data = []byte(strings.Join(lines, "\n"))
	default:
		return fmt.Errorf("Open: no such virtual file %q", req.Name)
	}

	index := 0
	for ; index < len(s.files) && s.files[index] != nil; index++ {
	}
	if index == len(s.files) {
		s.files = append(s.files, f)
	} else {
		s.files[index] = f
	}
	resp.FD = index
	return nil
}

func (s *Server) ReadAt(req *proxyrpc.ReadAtRequest, resp *proxyrpc.ReadAtResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.fileFor(req.FD)
	if err != nil {
		return err
	}
	if req.Offset >= int64(len(f.data)) {
		resp.Data = nil
		return nil
	}
	end := req.Offset + int64(req.Len)
	if end > int64(len(f.data)) {
		end = int64(len(f.data))
	}
	resp.Data = append([]byte(nil), f.data[req.Offset:end]...)
	return nil
}

func (s *Server) WriteAt(req *proxyrpc.WriteAtRequest, resp *proxyrpc.WriteAtResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.fileFor(req.FD)
	if err != nil {
		return err
	}
	if f.name != "image" || (f.mode != "w" && f.mode != "rw") {
		return fmt.Errorf("WriteAt: fd %d is not open for writing", req.FD)
	}
	end := req.Offset + int64(len(req.Data))
	if end > int64(len(f.written)) {
		grown := make([]byte, end)
		copy(grown, f.written)
		f.written = grown
	}
	copy(f.written[req.Offset:], req.Data)
	resp.Len = len(req.Data)
	return nil
}

// Close closes fd. Closing a writable "image" file restores the heap
// from whatever was written to it (spec.md §4.1.5's image restore).
func (s *Server) Close(req *proxyrpc.CloseRequest, resp *proxyrpc.CloseResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.fileFor(req.FD)
	if err != nil {
		return err
	}
	s.files[req.FD] = nil
	if f.name == "image" && (f.mode == "w" || f.mode == "rw") && len(f.written) > 0 {
		return s.dispatch(func() error {
			_, err := s.h.RestoreImage(f.written)
			return err
		})
	}
	return nil
}

// displayValue renders a heap value the way Eval's "sym:" result is shown
// to a caller: the string form for strings and integers, the kind name
// for anything with internal structure.
func displayValue(ref value.Ref) string {
	switch v := ref.(type) {
	case nil:
		return ""
	case *value.String:
		return v.Text
	case *value.Integer:
		return strconv.FormatInt(v.Value, 10)
	default:
		return fmt.Sprintf("a %s", ref.Kind())
	}
}

func (s *Server) fileFor(fd int) (*file, error) {
	if fd < 0 || fd >= len(s.files) || s.files[fd] == nil {
		return nil, fmt.Errorf("bad file descriptor %d", fd)
	}
	return s.files[fd], nil
}

// Eval evaluates an introspection expression (program.Introspector.Eval's
// re:/sym:/frame: forms).
func (s *Server) Eval(req *proxyrpc.EvalRequest, resp *proxyrpc.EvalResponse) (err error) {
	switch {
	case strings.HasPrefix(req.Expr, "re:"):
		re, rerr := regexp.Compile(req.Expr[len("re:"):])
		if rerr != nil {
			return rerr
		}
		return s.dispatch(func() error {
			for _, line := range s.act.Traceback() {
				if re.MatchString(line) {
					resp.Result = append(resp.Result, line)
				}
			}
			return nil
		})

	case strings.HasPrefix(req.Expr, "sym:"):
		name := req.Expr[len("sym:"):]
		if s.vars == nil {
			return fmt.Errorf("Eval: no variable pool registered")
		}
		return s.dispatch(func() error {
			v := &nativeactivation.VarRequest{Op: nativeactivation.VarFetch, NameKind: nativeactivation.VarNameSymbolic, Name: name}
			if err := s.vars.Process(v); err != nil {
				return err
			}
			resp.Result = []string{displayValue(v.Value)}
			return nil
		})

	case strings.HasPrefix(req.Expr, "frame:"):
		n, perr := strconv.Atoi(req.Expr[len("frame:"):])
		if perr != nil {
			return fmt.Errorf("Eval: bad frame index %q", req.Expr)
		}
		return s.dispatch(func() error {
			frames := s.act.Traceback()
			if n < 0 || n >= len(frames) {
				return fmt.Errorf("Eval: no frame at depth %d", n)
			}
			resp.Result = []string{frames[n]}
			return nil
		})
	}
	return fmt.Errorf("Eval: bad expression syntax: %q", req.Expr)
}

func (s *Server) Frames(req *proxyrpc.FramesRequest, resp *proxyrpc.FramesResponse) error {
	return s.dispatch(func() error {
		lines := s.act.Traceback()
		if req.Count > 0 && req.Count < len(lines) {
			lines = lines[len(lines)-req.Count:]
		}
		for i := len(lines) - 1; i >= 0; i-- {
			resp.Frames = append(resp.Frames, proxyrpc.Frame{S: lines[i]})
		}
		return nil
	})
}

func (s *Server) HeapStats(req *proxyrpc.HeapStatsRequest, resp *proxyrpc.HeapStatsResponse) error {
	return s.dispatch(func() error {
		resp.LiveObjects = s.h.LiveObjectCount()
		resp.PendingUninits = s.h.PendingUninits()
		return nil
	})
}

func (s *Server) SaveImage(req *proxyrpc.SaveImageRequest, resp *proxyrpc.SaveImageResponse) error {
	return s.dispatch(func() error {
		data, err := s.h.SaveImage()
		resp.Data = data
		return err
	})
}

func (s *Server) RestoreImage(req *proxyrpc.RestoreImageRequest, resp *proxyrpc.RestoreImageResponse) error {
	return s.dispatch(func() error {
		_, err := s.h.RestoreImage(req.Data)
		return err
	})
}
