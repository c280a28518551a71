package enrollment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounterDelta(t *testing.T) {
	tests := []struct {
		prev, next string
		want       int
	}{
		{"", StatusActive, 1},
		{"", StatusDropped, 0},
		{"", StatusCompleted, 0},
		{StatusActive, StatusDropped, -1},
		{StatusActive, StatusCompleted, -1},
		{StatusActive, StatusActive, 0},
		{StatusDropped, StatusActive, 1},
		{StatusCompleted, StatusActive, 1},
		{StatusDropped, StatusCompleted, 0},
		{StatusCompleted, StatusDropped, 0},
		{StatusActive, "", -1},
		{StatusDropped, "", 0},
	}
	for _, tc := range tests {
		t.Run(tc.prev+"->"+tc.next, func(t *testing.T) {
			assert.Equal(t, tc.want, CounterDelta(tc.prev, tc.next))
		})
	}
}

// The replayed counter must equal the number of active rows after every step.
func TestCounterDeltaKeepsCountInSync(t *testing.T) {
	statuses := map[int]string{}
	counter := 0
	steps := []struct {
		id     int
		status string
	}{
		{1, StatusActive},
		{2, StatusActive},
		{1, StatusDropped},
		{3, StatusCompleted},
		{3, StatusActive},
		{2, StatusCompleted},
		{1, StatusActive},
		{2, ""},
		{1, ""},
	}
	for _, s := range steps {
		counter += CounterDelta(statuses[s.id], s.status)
		if s.status == "" {
			delete(statuses, s.id)
		} else {
			statuses[s.id] = s.status
		}

		active := 0
		for _, st := range statuses {
			if st == StatusActive {
				active++
			}
		}
		assert.Equal(t, active, counter)
	}
}
