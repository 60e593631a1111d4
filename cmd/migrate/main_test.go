package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    action
		wantErr string
	}{
		{name: "up", args: []string{"-up"}, want: action{kind: actionUp, force: -1}},
		{name: "down with path", args: []string{"-down", "-path", "db/sql"}, want: action{kind: actionDown, force: -1, path: "db/sql"}},
		{name: "negative steps", args: []string{"-steps", "-2"}, want: action{kind: actionSteps, steps: -2, force: -1}},
		{name: "status", args: []string{"-status"}, want: action{kind: actionStatus, force: -1}},
		{name: "force zero", args: []string{"-force", "0"}, want: action{kind: actionForce, force: 0}},
		{name: "nothing", args: nil, wantErr: "no action specified"},
		{name: "two actions", args: []string{"-up", "-status"}, wantErr: "only one action"},
		{name: "unknown flag", args: []string{"-sideways"}, wantErr: "flag provided but not defined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := parseAction(tt.args, &out)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAction_UsageOnNoAction(t *testing.T) {
	var out bytes.Buffer
	_, err := parseAction(nil, &out)
	require.ErrorIs(t, err, errNoAction)
	assert.Contains(t, out.String(), "-status")
}
