package sitout

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeoutEscalation(t *testing.T) {
	mock := quartz.NewMock(t)
	c := NewController(mock, nil)
	defer c.Close()

	assert.False(t, c.HandleTimeout("A"), "first timeout only counts")
	assert.False(t, c.IsSittingOut("A"))
	assert.Equal(t, 1, c.TimeoutCount("A"))

	assert.True(t, c.HandleTimeout("A"), "second consecutive timeout sits the player out")
	assert.True(t, c.IsSittingOut("A"))
}

func TestVoluntaryActionResetsCounter(t *testing.T) {
	mock := quartz.NewMock(t)
	c := NewController(mock, nil)
	defer c.Close()

	c.HandleTimeout("A")
	c.HandleVoluntaryAction("A")
	assert.False(t, c.HandleTimeout("A"), "counter restarted after a real action")
	assert.False(t, c.IsSittingOut("A"))
}

func TestAutoLeaveFuse(t *testing.T) {
	ctx := context.Background()
	mock := quartz.NewMock(t)

	left := make(chan string, 1)
	c := NewController(mock, func(playerID string) { left <- playerID })
	defer c.Close()

	require.True(t, c.MarkSitOut("A", ReasonVoluntary))
	require.False(t, c.MarkSitOut("A", ReasonVoluntary), "already sitting out")

	mock.Advance(AutoLeaveAfter).MustWait(ctx)

	select {
	case id := <-left:
		assert.Equal(t, "A", id)
	default:
		t.Fatal("auto-leave did not fire")
	}
}

func TestSitInCancelsFuse(t *testing.T) {
	ctx := context.Background()
	mock := quartz.NewMock(t)

	left := make(chan string, 1)
	c := NewController(mock, func(playerID string) { left <- playerID })
	defer c.Close()

	require.True(t, c.MarkSitOut("A", ReasonTimeout))
	require.True(t, c.MarkSitIn("A"))
	assert.Equal(t, 0, c.TimeoutCount("A"))

	mock.Advance(AutoLeaveAfter + time.Minute).MustWait(ctx)
	select {
	case <-left:
		t.Fatal("auto-leave fired after sit-in")
	default:
	}
}

func TestLeaveClearsState(t *testing.T) {
	mock := quartz.NewMock(t)
	c := NewController(mock, nil)
	defer c.Close()

	c.HandleTimeout("A")
	c.MarkSitOut("A", ReasonTimeout)
	c.HandleLeave("A")

	assert.False(t, c.IsSittingOut("A"))
	assert.Equal(t, 0, c.TimeoutCount("A"))
	assert.Empty(t, c.List())
	assert.Empty(t, c.Set())
}
