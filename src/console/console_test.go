package console

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tfdavids/pintos/src/defs"
)

func TestStdout_Write_PassesThrough(t *testing.T) {
	var out bytes.Buffer
	c := New(&out, 16)
	n, err := c.Stdout().Write([]byte("hi"))
	require.Equal(t, defs.Err_t(0), err)
	require.Equal(t, 2, n)
	require.Equal(t, "hi", out.String())
}

func TestStdout_Read_ReturnsEINVAL(t *testing.T) {
	c := New(&bytes.Buffer{}, 16)
	_, err := c.Stdout().Read(make([]byte, 1))
	require.Equal(t, defs.EINVAL, err)
}

func TestStdin_Write_ReturnsEINVAL(t *testing.T) {
	c := New(&bytes.Buffer{}, 16)
	_, err := c.Stdin().Write([]byte("x"))
	require.Equal(t, defs.EINVAL, err)
}

func TestFeed_ThenStdinRead_ReturnsQueuedBytes(t *testing.T) {
	c := New(&bytes.Buffer{}, 16)
	n := c.Feed([]byte("ab"))
	require.Equal(t, 2, n)

	buf := make([]byte, 4)
	got, err := c.Stdin().Read(buf)
	require.Equal(t, defs.Err_t(0), err)
	require.Equal(t, 2, got)
	require.Equal(t, "ab", string(buf[:got]))
}

func TestFeed_BeyondCapacity_Truncates(t *testing.T) {
	c := New(&bytes.Buffer{}, 4)
	n := c.Feed([]byte("abcdef"))
	require.Equal(t, 4, n, "the ring buffer accepts only as many bytes as it has room for")
}
