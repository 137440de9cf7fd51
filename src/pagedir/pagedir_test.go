package pagedir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tfdavids/pintos/src/mem"
)

func TestInstall_ThenMapped(t *testing.T) {
	d := New()
	d.Install(0x1000, mem.Pa_t(3), true)

	kpage, ok := d.Mapped(0x1000)
	require.True(t, ok)
	require.Equal(t, mem.Pa_t(3), kpage)
	require.True(t, d.Writable(0x1000))
}

func TestClear_RemovesMapping(t *testing.T) {
	d := New()
	d.Install(0x1000, mem.Pa_t(1), false)
	d.Clear(0x1000)
	_, ok := d.Mapped(0x1000)
	require.False(t, ok)
}

func TestSetDirty_AlsoSetsAccessed(t *testing.T) {
	d := New()
	d.Install(0x1000, mem.Pa_t(1), true)
	d.SetDirty(0x1000)
	require.True(t, d.Dirty(0x1000))
	require.True(t, d.Accessed(0x1000))
}

func TestClearAccessed_LeavesDirtyUntouched(t *testing.T) {
	d := New()
	d.Install(0x1000, mem.Pa_t(1), true)
	d.SetDirty(0x1000)
	d.ClearAccessed(0x1000)
	require.False(t, d.Accessed(0x1000))
	require.True(t, d.Dirty(0x1000))
}

func TestAccessed_UnmappedPage_ReturnsFalse(t *testing.T) {
	d := New()
	require.False(t, d.Accessed(0x9999))
}
