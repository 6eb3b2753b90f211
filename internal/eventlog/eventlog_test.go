package eventlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feltd/feltd/internal/engine"
)

func sampleHistory() []engine.Event {
	return []engine.Event{
		engine.PlayerJoin{Seat: 0, PlayerID: "A", BuyIn: 1000},
		engine.PlayerJoin{Seat: 1, PlayerID: "B", BuyIn: 1000},
		engine.StartHand{HandNum: 1, At: 1700000000000, Suffix: "abcdefghi"},
	}
}

func TestMemoryAppendLoad(t *testing.T) {
	log := NewMemory(0)
	ctx := context.Background()

	for _, ev := range sampleHistory() {
		require.NoError(t, log.Append(ctx, "t1", ev))
	}
	require.NoError(t, log.Append(ctx, "t2", engine.HandEnd{}))

	got, err := log.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, sampleHistory(), got)

	other, err := log.Load(ctx, "t2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestMemoryCapacity(t *testing.T) {
	log := NewMemory(2)
	ctx := context.Background()
	require.NoError(t, log.Append(ctx, "t1", engine.DealHole{}))
	require.NoError(t, log.Append(ctx, "t1", engine.CloseStreet{}))
	require.NoError(t, log.Append(ctx, "t1", engine.HandEnd{}))

	got, err := log.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []engine.Event{engine.CloseStreet{}, engine.HandEnd{}}, got)
}

func TestSQLiteRoundTrip(t *testing.T) {
	log, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer log.Close()

	ctx := context.Background()
	for _, ev := range sampleHistory() {
		require.NoError(t, log.Append(ctx, "t1", ev))
	}

	got, err := log.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, sampleHistory(), got)

	empty, err := log.Load(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestReplayRebuildsState(t *testing.T) {
	base := engine.NewTable("t1", 5, 10, 0, 100, 2000)
	live := base.Clone()

	var history []engine.Event
	step := func(ev engine.Event) {
		next, _ := engine.Reduce(live, ev)
		if next != live {
			history = append(history, ev)
			live = next
		}
	}

	step(engine.PlayerJoin{Seat: 0, PlayerID: "A", BuyIn: 1000})
	step(engine.PlayerJoin{Seat: 4, PlayerID: "B", BuyIn: 500})
	step(engine.PlayerSitOut{PlayerID: "B", Reason: "voluntary"})

	rebuilt := Replay(engine.NewTable("t1", 5, 10, 0, 100, 2000), history)
	assert.Equal(t, live, rebuilt)
	assert.Equal(t, "B", rebuilt.Seats[4].PlayerID)
}
