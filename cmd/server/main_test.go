package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelsiege.ai/internal/sim/world"
)

type countingTickLog struct {
	err   error
	calls int
}

func (c *countingTickLog) WriteTick(world.TickLogEntry) error {
	c.calls++
	return c.err
}

func TestMultiTickLogger_JoinsSinkErrors(t *testing.T) {
	errDisk := errors.New("disk full")
	errIndex := errors.New("index closed")

	tests := []struct {
		name    string
		sinks   func() []*countingTickLog
		wantErr []error
	}{
		{
			name:  "all ok",
			sinks: func() []*countingTickLog { return []*countingTickLog{{}, {}} },
		},
		{
			name:    "first fails, second still written",
			sinks:   func() []*countingTickLog { return []*countingTickLog{{err: errDisk}, {}} },
			wantErr: []error{errDisk},
		},
		{
			name:    "both fail",
			sinks:   func() []*countingTickLog { return []*countingTickLog{{err: errDisk}, {err: errIndex}} },
			wantErr: []error{errDisk, errIndex},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sinks := tt.sinks()
			m := multiTickLogger{nil}
			for _, s := range sinks {
				m = append(m, s)
			}

			err := m.WriteTick(world.TickLogEntry{Tick: 7})
			for _, s := range sinks {
				assert.Equal(t, 1, s.calls)
			}
			if len(tt.wantErr) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.ErrorIs(t, err, want)
			}
		})
	}
}
