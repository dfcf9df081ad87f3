// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package mtllib parses the MTLB container format spec.md §6 describes:
// a magic tag, platform/OS/version header, a function table (name, type,
// SHA-256, size, offset, AIR version per entry), and a trailing bitcode
// blob the function table's offsets index into.
//
// This is a pure parser. It does not invoke a shader compiler — turning
// D3D11 shader bytecode into this container's bitcode is an external
// collaborator's job per spec.md §1 — it only extracts the already-
// compiled function records a Device hands to metal.Library.Function.
package mtllib

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Magic is the four-byte tag every MTLB container starts with.
var Magic = [4]byte{'M', 'T', 'L', 'B'}

// FunctionType distinguishes vertex/fragment/kernel entries in the
// function table, mirroring MTLFunctionType.
type FunctionType uint32

const (
	FunctionTypeVertex FunctionType = iota
	FunctionTypeFragment
	FunctionTypeKernel
)

// Header is the fixed-size MTLB prologue.
type Header struct {
	Platform            uint32
	OSVersion           uint32
	Version             uint32
	FunctionListOffset  uint64
	PublicMetadataOffset uint64
	PrivateMetadataOffset uint64
	FunctionCount       uint32
}

// Function is one function-table record: name, type, content hash, and
// the byte range within the container's bitcode blob that holds its AIR.
type Function struct {
	Name       string
	Type       FunctionType
	SHA256     [32]byte
	Offset     uint64
	Size       uint64
	AIRVersion uint32
}

// Container is a fully parsed MTLB file: the header, every function
// record, and the raw bitcode blob those records index into.
type Container struct {
	Header    Header
	Functions []Function
	Bitcode   []byte
}

// Parse decodes an MTLB container from raw bytes.
func Parse(data []byte) (*Container, error) {
	if len(data) < 4 || [4]byte(data[:4]) != Magic {
		return nil, fmt.Errorf("mtllib: missing MTLB magic")
	}
	if len(data) < headerSizeActual {
		return nil, fmt.Errorf("mtllib: truncated header (%d bytes)", len(data))
	}

	r := byteReader{data: data, off: 4}
	var h Header
	h.Platform = r.u32()
	h.OSVersion = r.u32()
	h.Version = r.u32()
	h.FunctionListOffset = r.u64()
	h.PublicMetadataOffset = r.u64()
	h.PrivateMetadataOffset = r.u64()
	h.FunctionCount = r.u32()
	if r.err != nil {
		return nil, r.err
	}

	if h.FunctionListOffset > uint64(len(data)) {
		return nil, fmt.Errorf("mtllib: function list offset %d beyond file size %d", h.FunctionListOffset, len(data))
	}
	fr := byteReader{data: data, off: int(h.FunctionListOffset)}
	funcs := make([]Function, 0, h.FunctionCount)
	for i := uint32(0); i < h.FunctionCount; i++ {
		nameLen := fr.u32()
		name := fr.bytes(int(nameLen))
		typ := fr.u32()
		var sum [32]byte
		copy(sum[:], fr.bytes(32))
		offset := fr.u64()
		size := fr.u64()
		airVersion := fr.u32()
		if fr.err != nil {
			return nil, fmt.Errorf("mtllib: parsing function record %d: %w", i, fr.err)
		}
		funcs = append(funcs, Function{
			Name:       string(name),
			Type:       FunctionType(typ),
			SHA256:     sum,
			Offset:     offset,
			Size:       size,
			AIRVersion: airVersion,
		})
	}

	bitcodeStart := fr.off
	if bitcodeStart > len(data) {
		bitcodeStart = len(data)
	}

	return &Container{Header: h, Functions: funcs, Bitcode: data[bitcodeStart:]}, nil
}

// Function looks up a function record by name.
func (c *Container) Function(name string) (Function, bool) {
	for _, f := range c.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return Function{}, false
}

// Bytes returns the raw AIR bytecode for f, sliced from the container's
// bitcode blob.
func (c *Container) Bytes(f Function) ([]byte, error) {
	if f.Offset+f.Size > uint64(len(c.Bitcode)) {
		return nil, fmt.Errorf("mtllib: function %q range [%d,%d) exceeds bitcode blob of %d bytes", f.Name, f.Offset, f.Offset+f.Size, len(c.Bitcode))
	}
	return c.Bitcode[f.Offset : f.Offset+f.Size], nil
}

// VerifyChecksum reports whether f's recorded SHA-256 matches its actual
// bitcode bytes, catching a truncated or corrupted container before it
// reaches the Metal compiler.
func (c *Container) VerifyChecksum(f Function) (bool, error) {
	b, err := c.Bytes(f)
	if err != nil {
		return false, err
	}
	return sha256.Sum256(b) == f.SHA256, nil
}

const headerSizeActual = 4 + 4 + 4 + 4 + 8 + 8 + 8 + 4

type byteReader struct {
	data []byte
	off  int
	err  error
}

func (r *byteReader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	if r.off+4 > len(r.data) {
		r.err = fmt.Errorf("mtllib: unexpected end of data reading uint32 at offset %d", r.off)
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *byteReader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	if r.off+8 > len(r.data) {
		r.err = fmt.Errorf("mtllib: unexpected end of data reading uint64 at offset %d", r.off)
		return 0
	}
	v := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v
}

func (r *byteReader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = fmt.Errorf("mtllib: unexpected end of data reading %d bytes at offset %d", n, r.off)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}
