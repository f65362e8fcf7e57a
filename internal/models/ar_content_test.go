package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestARContent_AdvanceRotation(t *testing.T) {
	tests := []struct {
		name    string
		state   int
		mode    VideoRotationType
		count   int
		want    int
		changed bool
	}{
		{"sequential steps", 0, VideoRotationSequential, 3, 1, true},
		{"sequential capped", 2, VideoRotationSequential, 3, 2, false},
		{"sequential past end clamps", 5, VideoRotationSequential, 3, 2, true},
		{"sequential single video", 0, VideoRotationSequential, 1, 0, false},
		{"cyclic grows", 2, VideoRotationCyclic, 3, 3, true},
		{"none untouched", 1, VideoRotationNone, 3, 1, false},
		{"unknown untouched", 1, "shuffle", 3, 1, false},
		{"negative reset", -2, VideoRotationNone, 3, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &ARContent{RotationState: tt.state}
			assert.Equal(t, tt.changed, item.AdvanceRotation(tt.mode, tt.count))
			assert.Equal(t, tt.want, item.RotationState)
		})
	}
}
