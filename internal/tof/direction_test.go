package tof

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectionRendering(t *testing.T) {
	tests := []struct {
		dir    Direction
		name   string
		symbol byte
		arrow  string
	}{
		{Stationary, "stationary", '-', "·"},
		{Up, "up", 'u', "↑"},
		{Down, "down", 'd', "↓"},
		{Left, "left", 'l', "←"},
		{Right, "right", 'r', "→"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.dir.String())
			assert.Equal(t, tt.symbol, tt.dir.Symbol())
			assert.Equal(t, tt.arrow, tt.dir.Arrow())

			byName, err := ParseDirection(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.dir, byName)

			bySymbol, err := ParseDirection(string(tt.symbol))
			require.NoError(t, err)
			assert.Equal(t, tt.dir, bySymbol)
		})
	}
}

func TestDirection_Invalid(t *testing.T) {
	bad := Direction(42)
	assert.Equal(t, "Direction(42)", bad.String())
	assert.Equal(t, byte('?'), bad.Symbol())

	_, err := ParseDirection("sideways")
	assert.Error(t, err)

	_, err = json.Marshal(bad)
	assert.Error(t, err)
}

func TestDirection_JSON(t *testing.T) {
	payload := struct {
		Dir Direction `json:"dir"`
	}{Dir: Left}

	b, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"dir":"left"}`, string(b))

	payload.Dir = Stationary
	require.NoError(t, json.Unmarshal([]byte(`{"dir":"r"}`), &payload))
	assert.Equal(t, Right, payload.Dir)
}
