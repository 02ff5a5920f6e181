// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package lzgate

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/luxfi/geth/rlp"
)

const versionLen = 2

var ErrUnknownCodecVersion = errors.New("unknown codec version")

// CodecImpl encodes packets as a big endian version followed by their RLP
// encoding
type CodecImpl struct{}

// Codec is the default codec instance
var Codec = &CodecImpl{}

// Marshal serializes v under version
func (*CodecImpl) Marshal(version uint16, v interface{}) ([]byte, error) {
	body, err := rlp.EncodeToBytes(v)
	if err != nil {
		return nil, err
	}
	b := make([]byte, versionLen, versionLen+len(body))
	binary.BigEndian.PutUint16(b, version)
	return append(b, body...), nil
}

// Unmarshal deserializes b into v and returns the version it was encoded
// with
func (*CodecImpl) Unmarshal(b []byte, v interface{}) (uint16, error) {
	if len(b) < versionLen {
		return 0, fmt.Errorf("%w: %d bytes", ErrInvalidPacket, len(b))
	}
	version := binary.BigEndian.Uint16(b)
	if version != CodecVersion {
		return version, fmt.Errorf("%w: %d", ErrUnknownCodecVersion, version)
	}
	return version, rlp.DecodeBytes(b[versionLen:], v)
}
