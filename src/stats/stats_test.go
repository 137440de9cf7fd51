package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCounter_Inc_NoOpWhenDisabled(t *testing.T) {
	Enabled = false
	var c Counter_t
	c.Inc()
	require.Equal(t, int64(0), c.Value())
}

func TestCounter_Inc_CountsWhenEnabled(t *testing.T) {
	Enabled = true
	defer func() { Enabled = false }()
	var c Counter_t
	c.Inc()
	c.Add(4)
	require.Equal(t, int64(5), c.Value())
}

func TestDump_RendersCounterFields(t *testing.T) {
	type demo struct {
		Faults Counter_t
	}
	Enabled = true
	defer func() { Enabled = false }()
	d := demo{}
	d.Faults.Add(3)
	out := Dump(d)
	require.Contains(t, out, "Faults")
	require.Contains(t, out, "3")
}
