// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package mtllib

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"
)

func buildContainer(t *testing.T, funcs []Function, bitcode []byte) []byte {
	t.Helper()
	var listBuf []byte
	for i := range funcs {
		f := &funcs[i]
		f.SHA256 = sha256.Sum256(bitcode[f.Offset : f.Offset+f.Size])

		var rec []byte
		rec = binary.LittleEndian.AppendUint32(rec, uint32(len(f.Name)))
		rec = append(rec, []byte(f.Name)...)
		rec = binary.LittleEndian.AppendUint32(rec, uint32(f.Type))
		rec = append(rec, f.SHA256[:]...)
		rec = binary.LittleEndian.AppendUint64(rec, f.Offset)
		rec = binary.LittleEndian.AppendUint64(rec, f.Size)
		rec = binary.LittleEndian.AppendUint32(rec, f.AIRVersion)
		listBuf = append(listBuf, rec...)
	}

	var header []byte
	header = append(header, Magic[:]...)
	header = binary.LittleEndian.AppendUint32(header, 1) // platform
	header = binary.LittleEndian.AppendUint32(header, 0) // osVersion
	header = binary.LittleEndian.AppendUint32(header, 1) // version
	functionListOffset := uint64(headerSizeActual)
	header = binary.LittleEndian.AppendUint64(header, functionListOffset)
	header = binary.LittleEndian.AppendUint64(header, 0) // publicMetadataOffset
	header = binary.LittleEndian.AppendUint64(header, 0) // privateMetadataOffset
	header = binary.LittleEndian.AppendUint32(header, uint32(len(funcs)))

	out := append(header, listBuf...)
	out = append(out, bitcode...)
	return out
}

func TestParse_RoundTripsFunctionTable(t *testing.T) {
	bitcode := []byte("fake-air-bytecode-payload-0123456789")
	funcs := []Function{
		{Name: "vs_main", Type: FunctionTypeVertex, Offset: 0, Size: 10, AIRVersion: 42},
		{Name: "ps_main", Type: FunctionTypeFragment, Offset: 10, Size: 26, AIRVersion: 42},
	}
	data := buildContainer(t, funcs, bitcode)

	c, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(c.Functions) != 2 {
		t.Fatalf("got %d functions, want 2", len(c.Functions))
	}

	vs, ok := c.Function("vs_main")
	if !ok {
		t.Fatalf("vs_main not found")
	}
	if vs.Type != FunctionTypeVertex || vs.AIRVersion != 42 {
		t.Fatalf("vs_main record mismatch: %+v", vs)
	}

	b, err := c.Bytes(vs)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if string(b) != "fake-air-b" {
		t.Fatalf("got bitcode %q, want %q", b, "fake-air-b")
	}

	ok2, err := c.VerifyChecksum(vs)
	if err != nil {
		t.Fatalf("VerifyChecksum: %v", err)
	}
	if !ok2 {
		t.Fatalf("checksum should verify")
	}
}

func TestParse_RejectsBadMagic(t *testing.T) {
	if _, err := Parse([]byte("NOPE")); err == nil {
		t.Fatalf("expected an error for bad magic")
	}
}

func TestVerifyChecksum_DetectsCorruption(t *testing.T) {
	bitcode := []byte("0123456789abcdef")
	funcs := []Function{{Name: "cs_main", Type: FunctionTypeKernel, Offset: 0, Size: uint64(len(bitcode))}}
	data := buildContainer(t, funcs, bitcode)

	// Corrupt a bitcode byte after the checksum was computed over the original.
	data[len(data)-1] ^= 0xFF

	c, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	fn, _ := c.Function("cs_main")
	ok, err := c.VerifyChecksum(fn)
	if err != nil {
		t.Fatalf("VerifyChecksum: %v", err)
	}
	if ok {
		t.Fatalf("expected checksum mismatch after corruption")
	}
}
