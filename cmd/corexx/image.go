// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oorexx/corexx/internal/heap"
	"github.com/oorexx/corexx/program/client"
)

var imageAddr string

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "save or restore the heap image of a running corexx server",
}

var imageSaveCmd = &cobra.Command{
	Use:   "save <out-file>",
	Short: "flatten the running server's heap to out-file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		remote, err := client.Dial("tcp", imageAddr)
		if err != nil {
			exitf("dial %s: %v\n", imageAddr, err)
		}
		defer remote.Close()

		data, err := remote.SaveImage()
		if err != nil {
			exitf("SaveImage: %v\n", err)
		}
		if err := os.WriteFile(args[0], data, 0644); err != nil {
			exitf("%v\n", err)
		}
		fmt.Fprintf(os.Stderr, "wrote %d bytes to %s\n", len(data), args[0])
	},
}

var imageRestoreCmd = &cobra.Command{
	Use:   "restore <in-file>",
	Short: "replace the running server's heap with the image in in-file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		remote, err := client.Dial("tcp", imageAddr)
		if err != nil {
			exitf("dial %s: %v\n", imageAddr, err)
		}
		defer remote.Close()

		data, unmap, err := heap.MapImageFile(args[0])
		if err != nil {
			exitf("%v\n", err)
		}
		defer unmap()

		if err := remote.RestoreImage(data); err != nil {
			exitf("RestoreImage: %v\n", err)
		}
		fmt.Fprintf(os.Stderr, "restored %d bytes from %s\n", len(data), args[0])
	},
}

func init() {
	imageCmd.PersistentFlags().StringVar(&imageAddr, "addr", "localhost:9999", "address of a running 'corexx serve'")
	imageCmd.AddCommand(imageSaveCmd)
	imageCmd.AddCommand(imageRestoreCmd)
}
