package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStats_Fields(t *testing.T) {
	s := Stats{
		Reactors:            4,
		Workers:             8,
		ConnectionsAccepted: 10,
		ConnectionsOpen:     3,
		RequestsProcessed:   42,
		WorkerPanics:        1,
	}

	fields := s.Fields()
	assert.Len(t, fields, 11)
	assert.Equal(t, float64(4), fields["reactors"])
	assert.Equal(t, float64(8), fields["workers"])
	assert.Equal(t, float64(10), fields["connections_accepted"])
	assert.Equal(t, float64(3), fields["connections_open"])
	assert.Equal(t, float64(42), fields["requests_processed"])
	assert.Equal(t, float64(1), fields["worker_panics"])
	assert.Equal(t, float64(0), fields["queue_depth"])
}
