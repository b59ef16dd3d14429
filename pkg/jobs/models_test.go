package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSwitchRunTableName(t *testing.T) {
	r := SwitchRun{}
	assert.Equal(t, "status_switch_runs", r.TableName())
}

func TestSwitchRunIsTerminal(t *testing.T) {
	tests := []struct {
		state    RunState
		terminal bool
	}{
		{RunStateRunning, false},
		{RunStateSucceeded, true},
		{RunStateFailed, true},
	}

	for _, tc := range tests {
		t.Run(string(tc.state), func(t *testing.T) {
			r := &SwitchRun{State: tc.state}
			assert.Equal(t, tc.terminal, r.IsTerminal())
		})
	}
}
