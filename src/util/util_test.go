package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundup_AlignsUp(t *testing.T) {
	require.Equal(t, 4096, Roundup(1, 4096))
	require.Equal(t, 4096, Roundup(4096, 4096))
	require.Equal(t, 8192, Roundup(4097, 4096))
}

func TestRounddown_AlignsDown(t *testing.T) {
	require.Equal(t, 0, Rounddown(4095, 4096))
	require.Equal(t, 4096, Rounddown(4096, 4096))
}

func TestMin(t *testing.T) {
	require.Equal(t, 3, Min(3, 7))
	require.Equal(t, 3, Min(7, 3))
}

func TestWritenReadn_RoundTrip(t *testing.T) {
	buf := make([]uint8, 16)
	Writen(buf, 4, 4, 0xdeadbeef)
	require.Equal(t, int(uint32(0xdeadbeef)), Readn(buf, 4, 4))
}

func TestReadn_OutOfBounds_Panics(t *testing.T) {
	buf := make([]uint8, 4)
	require.Panics(t, func() { Readn(buf, 8, 0) })
}
