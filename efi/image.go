// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2026 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package efi

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/snapcore/snapd/snap"
)

// ImageReader corresponds to an open handle from which to read a binary image from.
type ImageReader interface {
	io.ReaderAt
	io.Closer
	Size() int64
}

// Image provides a PE image that participates in the boot process, such as the
// next stage loader or shim.
type Image interface {
	fmt.Stringer
	Open() (ImageReader, error) // Open a handle to the image for reading
}

// SnapFileImage provides an image contained within a snap package, such as the
// boot assets shipped in a gadget snap.
type SnapFileImage struct {
	Container snap.Container
	FileName  string // The filename within the snap squashfs
}

// NewSnapFileImage creates a new SnapFileImage for the file at the
// specified relative path within the supplied snap.
func NewSnapFileImage(container snap.Container, filename string) *SnapFileImage {
	return &SnapFileImage{
		Container: container,
		FileName:  filename}
}

// String implements [fmt.Stringer].
func (f SnapFileImage) String() string {
	return fmt.Sprintf("%#v:%s", f.Container, f.FileName)
}

// Open implements [Image.Open].
func (f SnapFileImage) Open() (ImageReader, error) {
	return f.Container.RandomAccessFile(f.FileName)
}

type fileImageReader struct {
	*os.File
	size int64
}

func (h *fileImageReader) Size() int64 {
	return h.size
}

// FileImage provides an image from a file.
type FileImage string

// NewFileImage creates a new FileImage for the file at the specified path.
func NewFileImage(path string) FileImage {
	return FileImage(path)
}

// String implements [fmt.Stringer].
func (p FileImage) String() string {
	return string(p)
}

// Open implements [Image.Open].
func (p FileImage) Open() (ImageReader, error) {
	f, err := os.Open(string(p))
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fileImageReader{File: f, size: fi.Size()}, nil
}

type bytesImageReader struct {
	*bytes.Reader
}

func (bytesImageReader) Close() error { return nil }

// BytesImage provides an image that is already in memory.
type BytesImage struct {
	Name string
	Data []byte
}

// NewBytesImage creates a new BytesImage with the supplied name and contents.
func NewBytesImage(name string, data []byte) *BytesImage {
	return &BytesImage{Name: name, Data: data}
}

// String implements [fmt.Stringer].
func (i *BytesImage) String() string {
	return i.Name
}

// Open implements [Image.Open].
func (i *BytesImage) Open() (ImageReader, error) {
	return bytesImageReader{bytes.NewReader(i.Data)}, nil
}
