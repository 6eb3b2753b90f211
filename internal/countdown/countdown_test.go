package countdown

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateElapsed(t *testing.T) {
	ctx := context.Background()
	mock := quartz.NewMock(t)
	m := NewManager(mock)
	defer m.Close()

	rec := m.Start(TypeGameStart, 10*time.Second, nil)

	err := m.ValidateElapsed(rec.ID)
	assert.ErrorIs(t, err, ErrTooEarly)

	mock.Advance(10 * time.Second).MustWait(ctx)
	assert.NoError(t, m.ValidateElapsed(rec.ID))

	assert.NoError(t, m.ValidateElapsed("unknown-id"), "swept records pass")
}

func TestPriorityOrdering(t *testing.T) {
	mock := quartz.NewMock(t)
	m := NewManager(mock)
	defer m.Close()

	m.Start(TypeNewHand, time.Second, nil)
	m.Start(TypeGameStart, time.Second, nil)
	m.Start(TypeAction, time.Second, map[string]string{"seat": "3"})
	m.Start(TypeStreetDeal, time.Second, nil)

	active := m.Active()
	require.Len(t, active, 4)
	assert.Equal(t, TypeAction, active[0].Type)
	assert.Equal(t, TypeGameStart, active[1].Type)
	assert.Equal(t, TypeStreetDeal, active[2].Type)
	assert.Equal(t, TypeNewHand, active[3].Type)
	assert.Equal(t, "3", active[0].Metadata["seat"])
}

func TestSweepDropsExpired(t *testing.T) {
	ctx := context.Background()
	mock := quartz.NewMock(t)
	m := NewManager(mock)
	defer m.Close()

	short := m.Start(TypeStreetDeal, 3*time.Second, nil)
	long := m.Start(TypeReconnect, 5*time.Minute, nil)

	// First sweep at 30s: the short countdown is past its 5s grace, the
	// long one is still live.
	mock.Advance(30 * time.Second).MustWait(ctx)

	active := m.Active()
	require.Len(t, active, 1)
	assert.Equal(t, long.ID, active[0].ID)
	assert.NoError(t, m.ValidateElapsed(short.ID))
}

func TestCancel(t *testing.T) {
	mock := quartz.NewMock(t)
	m := NewManager(mock)
	defer m.Close()

	rec := m.Start(TypeGameStart, time.Second, nil)
	m.Start(TypeNewHand, time.Second, nil)
	m.Start(TypeNewHand, time.Second, nil)

	m.Cancel(rec.ID)
	m.CancelType(TypeNewHand)
	assert.Empty(t, m.Active())
}
