// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package lzgate

import (
	"errors"
	"fmt"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

func TestPacket(t *testing.T) {
	require := require.New(t)

	src := common.HexToAddress("0x01")
	dst := common.HexToAddress("0x02")
	payload := []byte("test payload")

	p, err := NewPacket(123, src, 10109, dst, 1, payload)
	require.NoError(err)

	b := p.Bytes()
	require.NotEmpty(b)

	parsed, err := ParsePacket(b)
	require.NoError(err)
	require.Equal(p, parsed)
	require.Equal(p.ID(), parsed.ID())
	require.Equal(PackPath(src, dst), p.SrcPath())
}

func TestInvalidPacket(t *testing.T) {
	require := require.New(t)

	_, err := NewPacket(1, common.Address{}, 2, common.Address{}, 0, nil)
	require.ErrorIs(err, ErrInvalidPacket)

	_, err = NewPacket(1, common.Address{}, 2, common.Address{}, 1, make([]byte, MaxPayloadSize+1))
	require.ErrorIs(err, ErrInvalidPacket)

	_, err = ParsePacket([]byte{0x01})
	require.ErrorIs(err, ErrInvalidPacket)

	p, err := NewPacket(1, common.Address{}, 2, common.Address{}, 1, nil)
	require.NoError(err)
	b := p.Bytes()
	b[1] = 0x07
	_, err = ParsePacket(b)
	require.ErrorIs(err, ErrUnknownCodecVersion)

	_, err = ParsePacket([]byte{0x00, 0x00, 0xc0})
	require.Error(err)
}

func TestPath(t *testing.T) {
	require := require.New(t)

	remote := common.HexToAddress("0xaaaa")
	local := common.HexToAddress("0xbbbb")

	path := PackPath(remote, local)
	require.Len(path, PathLen)

	r, l, err := SplitPath(path)
	require.NoError(err)
	require.Equal(remote, r)
	require.Equal(local, l)

	_, _, err = SplitPath(path[:20])
	require.ErrorIs(err, ErrInvalidPath)

	require.Equal(NewPathKey(1, path), NewPathKey(1, PackPath(remote, local)))
	require.NotEqual(NewPathKey(1, path), NewPathKey(2, path))
}

func TestReason(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason string
		kind   Kind
	}{
		{
			name:   "sentinel",
			err:    ErrInvalidRemoteInput,
			reason: "InvalidRemoteInput",
			kind:   KindRemoteInput,
		},
		{
			name:   "wrapped",
			err:    fmt.Errorf("%w: profile 1", ErrInitParamsInvalid),
			reason: "InitParamsInvalid",
			kind:   KindConfiguration,
		},
		{
			name:   "plain",
			err:    errors.New("boom"),
			reason: "boom",
			kind:   KindUnknown,
		},
		{
			name: "nil",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			require.Equal(tt.reason, Reason(tt.err))
			if tt.err != nil {
				require.Equal(tt.kind, KindOf(tt.err))
			}
		})
	}
}
