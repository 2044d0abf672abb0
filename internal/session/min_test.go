package session

import (
	"testing"

	"openlink/internal/protocol"
)

func TestMinCountersCycleFromOneToSixtyThree(t *testing.T) {
	c := MinCounters{}
	for want := 1; want <= 63; want++ {
		if got := c.Next("LFPG", protocol.Uplink); got != want {
			t.Fatalf("iteration %d: got %d", want, got)
		}
	}
	if got := c.Next("LFPG", protocol.Uplink); got != 1 {
		t.Errorf("after 63, got %d, want wrap to 1", got)
	}
}

func TestMinCountersAreIndependentPerPeerAndDirection(t *testing.T) {
	c := MinCounters{}
	c.Next("LFPG", protocol.Uplink)
	c.Next("LFPG", protocol.Uplink)

	if got := c.Next("LFPG", protocol.Downlink); got != 1 {
		t.Errorf("downlink counter should start fresh, got %d", got)
	}
	if got := c.Next("EHAM", protocol.Uplink); got != 1 {
		t.Errorf("EHAM counter should start fresh, got %d", got)
	}
	if got := c.Next("LFPG", protocol.Uplink); got != 3 {
		t.Errorf("LFPG uplink counter should continue from 2, got %d", got)
	}
}
