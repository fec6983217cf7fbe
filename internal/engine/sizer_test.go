package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChooseBatchSize(t *testing.T) {
	tests := []struct {
		name      string
		available int
		min       int
		max       int
		optimal   int
		want      int
	}{
		{"BelowMin", 3, 5, 100, 20, 3},
		{"AboveMax", 200, 5, 100, 20, 20},
		{"Between", 50, 5, 100, 20, 20},
		{"BetweenBelowOptimal", 12, 5, 100, 20, 12},
		{"ExactlyMin", 5, 5, 100, 20, 5},
		{"ExactlyMax", 100, 5, 100, 20, 20},
		{"Zero", 0, 5, 100, 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChooseBatchSize(tt.available, tt.min, tt.max, tt.optimal)
			assert.Equal(t, tt.want, got)
		})
	}
}
