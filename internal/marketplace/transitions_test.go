package marketplace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	all := []Status{StatusCreated, StatusAccepted, StatusDelivered, StatusCompleted, StatusDisputed, StatusCancelled}

	allowed := map[Status]map[Status]bool{
		StatusCreated:   {StatusAccepted: true, StatusCancelled: true},
		StatusAccepted:  {StatusDelivered: true, StatusCancelled: true},
		StatusDelivered: {StatusCompleted: true, StatusDisputed: true},
	}

	for _, from := range all {
		for _, to := range all {
			got := CanTransition(from, to)
			want := allowed[from][to]
			assert.Equal(t, want, got, "%s -> %s", from, to)
		}
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, Terminal(StatusCompleted))
	assert.True(t, Terminal(StatusDisputed))
	assert.True(t, Terminal(StatusCancelled))
	assert.False(t, Terminal(StatusCreated))
	assert.False(t, Terminal(StatusAccepted))
	assert.False(t, Terminal(StatusDelivered))
}

func TestPlatformFee(t *testing.T) {
	cases := []struct {
		amount int64
		feeBps int64
		want   int64
	}{
		{50, 1000, 5},
		{100, 1000, 10},
		{999, 1000, 99},  // floors, never rounds up
		{1, 1000, 0},
		{0, 1000, 0},
		{50, 0, 0},
		{10000, 250, 250},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, PlatformFee(tc.amount, tc.feeBps), "fee(%d, %d)", tc.amount, tc.feeBps)
	}
}
