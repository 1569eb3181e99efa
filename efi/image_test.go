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

package efi_test

import (
	"errors"
	"io"
	"io/ioutil"
	"path/filepath"

	"github.com/snapcore/snapd/snap"
	. "gopkg.in/check.v1"

	. "github.com/snapcore/efi-rehash/efi"
)

type mockSnapImageReader struct{}

func (mockSnapImageReader) ReadAt(p []byte, off int64) (int, error) { return 0, nil }
func (mockSnapImageReader) Close() error                            { return nil }
func (mockSnapImageReader) Size() int64                             { return 0 }

type mockSnapContainer struct {
	r    mockSnapImageReader
	path string
	err  error
}

func (*mockSnapContainer) Size() (int64, error) { return 0, nil }

func (c *mockSnapContainer) RandomAccessFile(relative string) (interface {
	io.ReaderAt
	io.Closer
	Size() int64
}, error) {
	c.path = relative
	if c.err != nil {
		return nil, c.err
	}
	return &c.r, nil
}

func (*mockSnapContainer) ReadFile(relative string) ([]byte, error)             { return nil, nil }
func (*mockSnapContainer) Walk(relative string, walkFn filepath.WalkFunc) error { return nil }
func (*mockSnapContainer) ListDir(path string) ([]string, error)                { return nil, nil }
func (*mockSnapContainer) Install(targetPath, mountDir string, opts *snap.InstallOptions) (bool, error) {
	return false, nil
}
func (*mockSnapContainer) Unpack(src, dst string) error { return nil }

type imageSuite struct{}

var _ = Suite(&imageSuite{})

func (s *imageSuite) TestNewSnapFileImage(c *C) {
	container := new(mockSnapContainer)
	image := NewSnapFileImage(container, "EFI/boot/grubx64.efi")
	c.Check(image, DeepEquals, &SnapFileImage{Container: container, FileName: "EFI/boot/grubx64.efi"})
}

func (s *imageSuite) TestSnapFileImageOpen(c *C) {
	container := new(mockSnapContainer)
	image := NewSnapFileImage(container, "EFI/boot/bootx64.efi")
	r, err := image.Open()
	c.Check(err, IsNil)
	c.Check(r, Equals, &container.r)
	c.Check(container.path, Equals, "EFI/boot/bootx64.efi")
}

func (s *imageSuite) TestSnapFileImageOpenError(c *C) {
	container := &mockSnapContainer{err: errors.New("some error")}
	image := NewSnapFileImage(container, "foo")
	_, err := image.Open()
	c.Check(err, Equals, container.err)
}

func (s *imageSuite) TestNewFileImage(c *C) {
	image := NewFileImage("/boot/efi/EFI/ubuntu/grubx64.efi")
	c.Check(image, Equals, FileImage("/boot/efi/EFI/ubuntu/grubx64.efi"))
	c.Check(image.String(), Equals, "/boot/efi/EFI/ubuntu/grubx64.efi")
}

func (s *imageSuite) TestFileImageOpen(c *C) {
	contents := []byte("some file contents")

	dir := c.MkDir()
	c.Check(ioutil.WriteFile(filepath.Join(dir, "foo"), contents, 0644), IsNil)

	image := NewFileImage(filepath.Join(dir, "foo"))
	r, err := image.Open()
	c.Assert(err, IsNil)
	defer r.Close()

	c.Check(r.Size(), Equals, int64(18))
	data, err := ioutil.ReadAll(io.NewSectionReader(r, 0, 1<<63-1))
	c.Check(err, IsNil)
	c.Check(data, DeepEquals, contents)
}

func (s *imageSuite) TestFileImageOpenMissing(c *C) {
	image := NewFileImage(filepath.Join(c.MkDir(), "foo"))
	_, err := image.Open()
	c.Check(err, ErrorMatches, `open .*/foo: no such file or directory`)
}

func (s *imageSuite) TestBytesImageOpen(c *C) {
	contents := []byte("some other contents")

	image := NewBytesImage("foo.efi", contents)
	c.Check(image.String(), Equals, "foo.efi")

	r, err := image.Open()
	c.Assert(err, IsNil)
	defer r.Close()

	c.Check(r.Size(), Equals, int64(len(contents)))
	data, err := ioutil.ReadAll(io.NewSectionReader(r, 0, r.Size()))
	c.Check(err, IsNil)
	c.Check(data, DeepEquals, contents)
}
