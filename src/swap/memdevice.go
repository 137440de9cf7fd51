package swap

// MemDevice is an in-memory Device, standing in for the swap block device
// when no real disk is attached (the kernel simulator's default, and every
// unit test in this package). Real hardware drivers queue a request and
// wait on a completion channel; this device completes synchronously since
// there is nothing to wait for.
type MemDevice struct {
	sectors [][SectorSize]byte
}

// NewMemDevice allocates an in-memory device with room for nsectors sectors.
func NewMemDevice(nsectors int) *MemDevice {
	return &MemDevice{sectors: make([][SectorSize]byte, nsectors)}
}

// Sectors reports the device's sector count.
func (d *MemDevice) Sectors() int {
	return len(d.sectors)
}

// ReadSector copies sector idx into buf.
func (d *MemDevice) ReadSector(idx int, buf []byte) {
	if len(buf) != SectorSize {
		panic("swap: bad sector buffer size")
	}
	copy(buf, d.sectors[idx][:])
}

// WriteSector copies buf into sector idx.
func (d *MemDevice) WriteSector(idx int, buf []byte) {
	if len(buf) != SectorSize {
		panic("swap: bad sector buffer size")
	}
	copy(d.sectors[idx][:], buf)
}
