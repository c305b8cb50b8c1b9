// Package shmem provides memfd-backed memory regions that survive the exec
// boundary between the fuzzer and a forked child.
package shmem

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

type Region struct {
	file *os.File
	data []byte
}

// New creates an anonymous shared region of size bytes.
func New(name string, size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid region size %d", size)
	}
	fd, err := unix.MemfdCreate(name, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create memfd: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to size memfd: %w", err)
	}
	r, err := Open(os.NewFile(uintptr(fd), name), size)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	return r, nil
}

// Open maps an inherited region file.
func Open(f *os.File, size int) (*Region, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("failed to map shared region %s: %w", f.Name(), err)
	}
	return &Region{file: f, data: data}, nil
}

func (r *Region) Bytes() []byte { return r.data }

func (r *Region) Len() int { return len(r.data) }

// File is passed to a child through exec.Cmd.ExtraFiles.
func (r *Region) File() *os.File { return r.file }

func (r *Region) Close() error {
	if r.data != nil {
		if err := unix.Munmap(r.data); err != nil {
			return fmt.Errorf("failed to unmap region: %w", err)
		}
		r.data = nil
	}
	return r.file.Close()
}
