package onchain

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/zkpreimage/poseidon-preimage/protocol"
)

var (
	ErrIndexOutOfBound = errors.New("index out of bound")
	ErrLengthNotEnough = errors.New("length not enough")
)

// Source hands witness bytes to the entry point. LoadWitness copies witness index into
// buf and returns the full witness length. A witness longer than buf fails with
// ErrLengthNotEnough; a missing one with ErrIndexOutOfBound.
//
//go:generate mockgen -destination=mock/SourceMock.go . Source
type Source interface {
	LoadWitness(buf []byte, index int) (int, error)
}

func load(buf, witness []byte) (int, error) {
	n := copy(buf, witness)
	if n < len(witness) {
		return len(witness), errors.Wrapf(ErrLengthNotEnough, "witness is %d bytes, buffer %d", len(witness), len(buf))
	}
	return n, nil
}

// MemorySource serves witnesses held in memory.
type MemorySource [][]byte

func (s MemorySource) LoadWitness(buf []byte, index int) (int, error) {
	if index < 0 || index >= len(s) {
		return 0, ErrIndexOutOfBound
	}
	return load(buf, s[index])
}

// FileSource serves each witness from its own file.
type FileSource []string

// NewFileSource lists the artifact files in slot order.
func NewFileSource(params, vk, proof, output string) FileSource {
	return FileSource{params, vk, proof, output}
}

func (s FileSource) LoadWitness(buf []byte, index int) (int, error) {
	if index < 0 || index >= len(s) {
		return 0, ErrIndexOutOfBound
	}
	f, err := os.Open(s[index])
	if err != nil {
		return 0, err
	}
	defer f.Close()

	// one byte past the buffer tells an oversize file from one that fits exactly
	r := io.LimitReader(f, int64(len(buf))+1)
	n, err := io.ReadFull(r, buf)
	switch {
	case err == nil:
		var extra [1]byte
		if m, _ := r.Read(extra[:]); m > 0 {
			size := int64(len(buf) + m)
			if info, err := f.Stat(); err == nil && info.Size() > size {
				size = info.Size()
			}
			return int(size), errors.Wrapf(ErrLengthNotEnough, "%s exceeds %d bytes", s[index], len(buf))
		}
	case err == io.EOF, err == io.ErrUnexpectedEOF:
	default:
		return 0, errors.Wrap(err, s[index])
	}
	return n, nil
}

// BundleSource serves the witnesses carried by a bundle.
type BundleSource struct {
	Bundle *protocol.Bundle
}

func (s BundleSource) LoadWitness(buf []byte, index int) (int, error) {
	w, err := s.Bundle.Slot(index)
	if err != nil {
		return 0, errors.Wrap(ErrIndexOutOfBound, err.Error())
	}
	return load(buf, w)
}
