package journal

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordIsBounded(t *testing.T) {
	j := New(3)
	for i := 0; i < 5; i++ {
		j.Record(Event{Path: fmt.Sprintf("f%d", i), OK: true})
	}
	got := j.Recent()
	require.Len(t, got, 3)
	require.Equal(t, "f2", got[0].Path)
	require.Equal(t, "f4", got[2].Path)
}

func TestSubscribeReceivesEvents(t *testing.T) {
	j := New(10)
	ch := j.Subscribe()
	defer j.Unsubscribe(ch)

	j.Record(Event{Path: "x.txt", Direction: "pull", OK: true})

	select {
	case e := <-ch:
		require.Equal(t, "x.txt", e.Path)
		require.False(t, e.Time.IsZero())
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}
