package swap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tfdavids/pintos/src/mem"
)

func TestWriteLoadPage_RoundTrip(t *testing.T) {
	dev := NewMemDevice(SectorsPerPage * 4)
	m := New(dev)

	page := make([]byte, mem.PGSIZE)
	for i := range page {
		page[i] = byte(i)
	}

	slot := m.WritePage(page)
	require.Equal(t, 1, m.Used())

	out := make([]byte, mem.PGSIZE)
	ok := m.LoadPage(slot, out)
	require.True(t, ok)
	require.Equal(t, page, out)
	require.Equal(t, 0, m.Used(), "LoadPage frees the slot it reads")
}

func TestLoadPage_UnusedSlot_ReturnsFalse(t *testing.T) {
	dev := NewMemDevice(SectorsPerPage * 2)
	m := New(dev)
	out := make([]byte, mem.PGSIZE)
	require.False(t, m.LoadPage(0, out))
}

func TestWritePage_ExhaustedDevice_Panics(t *testing.T) {
	dev := NewMemDevice(SectorsPerPage)
	m := New(dev)
	page := make([]byte, mem.PGSIZE)

	m.WritePage(page)
	require.Panics(t, func() { m.WritePage(page) })
}

func TestFree_UnusedSlot_Panics(t *testing.T) {
	dev := NewMemDevice(SectorsPerPage)
	m := New(dev)
	require.Panics(t, func() { m.Free(0) })
}

func TestNew_DeviceTooSmall_Panics(t *testing.T) {
	dev := NewMemDevice(SectorsPerPage - 1)
	require.Panics(t, func() { New(dev) })
}
