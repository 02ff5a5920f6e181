// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package lzgate

import (
	"errors"
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
)

const (
	CodecVersion   = 0
	MaxPayloadSize = 10 * KiB

	// PathLen is the length of a packed (remote, local) address pair
	PathLen = 2 * common.AddressLength
)

var (
	ErrInvalidPacket = errors.New("invalid packet")
	ErrInvalidPath   = errors.New("invalid path")
)

// Packet is a message in flight between two endpoints
type Packet struct {
	SrcChainID uint16
	SrcAddress common.Address
	DstChainID uint16
	DstAddress common.Address
	Nonce      uint64
	Payload    []byte
}

// NewPacket creates a new packet
func NewPacket(
	srcChainID uint16,
	srcAddress common.Address,
	dstChainID uint16,
	dstAddress common.Address,
	nonce uint64,
	payload []byte,
) (*Packet, error) {
	p := &Packet{
		SrcChainID: srcChainID,
		SrcAddress: srcAddress,
		DstChainID: dstChainID,
		DstAddress: dstAddress,
		Nonce:      nonce,
		Payload:    payload,
	}
	if err := p.Verify(); err != nil {
		return nil, err
	}
	return p, nil
}

// Verify verifies the packet
func (p *Packet) Verify() error {
	if p.Nonce == 0 {
		return fmt.Errorf("%w: nonce must start at 1", ErrInvalidPacket)
	}
	if len(p.Payload) > MaxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d", ErrInvalidPacket, len(p.Payload), MaxPayloadSize)
	}
	return nil
}

// Bytes returns the byte representation of the packet
func (p *Packet) Bytes() []byte {
	b, _ := Codec.Marshal(CodecVersion, p)
	return b
}

// ID returns the hash of the packet
func (p *Packet) ID() ids.ID {
	return ids.ID(common.Keccak256Hash(p.Bytes()))
}

// SrcPath returns the path the receiver sees as the sender
func (p *Packet) SrcPath() []byte {
	return PackPath(p.SrcAddress, p.DstAddress)
}

// ParsePacket parses a packet from bytes
func ParsePacket(b []byte) (*Packet, error) {
	p := &Packet{}
	if _, err := Codec.Unmarshal(b, p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal packet: %w", err)
	}
	if err := p.Verify(); err != nil {
		return nil, err
	}
	return p, nil
}

// PackPath packs a remote and local address the way trusted remotes are
// stored: remote ++ local.
func PackPath(remote, local common.Address) []byte {
	path := make([]byte, 0, PathLen)
	path = append(path, remote.Bytes()...)
	return append(path, local.Bytes()...)
}

// SplitPath returns the remote and local addresses of a packed path
func SplitPath(path []byte) (common.Address, common.Address, error) {
	if len(path) != PathLen {
		return common.Address{}, common.Address{}, fmt.Errorf("%w: length %d", ErrInvalidPath, len(path))
	}
	return common.BytesToAddress(path[:common.AddressLength]), common.BytesToAddress(path[common.AddressLength:]), nil
}

// PathKey identifies an inbound channel on an endpoint
type PathKey struct {
	SrcChainID uint16
	SrcPath    string
}

// NewPathKey returns the key of the channel from srcChainID over srcPath
func NewPathKey(srcChainID uint16, srcPath []byte) PathKey {
	return PathKey{SrcChainID: srcChainID, SrcPath: string(srcPath)}
}

// String returns a printable form of the key
func (k PathKey) String() string {
	return fmt.Sprintf("%d/%x", k.SrcChainID, []byte(k.SrcPath))
}
