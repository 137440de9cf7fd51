package oommsg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotify_DeliversOnChannel(t *testing.T) {
	for len(Ch) > 0 {
		<-Ch
	}
	Notify(3)
	msg := <-Ch
	require.Equal(t, 3, msg.Need)
}

func TestNotify_NeverBlocksWhenChannelFull(t *testing.T) {
	for len(Ch) > 0 {
		<-Ch
	}
	for i := 0; i < cap(Ch)+4; i++ {
		Notify(1)
	}
	require.Equal(t, cap(Ch), len(Ch))
}
