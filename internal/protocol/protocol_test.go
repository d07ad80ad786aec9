package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBase_RoutesByType(t *testing.T) {
	b, err := json.Marshal(InputMsg{Type: TypeInput, ProtocolVersion: Version, FireHeld: true, ToolCycle: -1})
	require.NoError(t, err)

	base, err := DecodeBase(b)
	require.NoError(t, err)
	assert.Equal(t, TypeInput, base.Type)
	assert.Equal(t, Version, base.ProtocolVersion)

	_, err = DecodeBase([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestInputMsg_OmitsUnsetPose(t *testing.T) {
	b, err := json.Marshal(InputMsg{Type: TypeInput, ProtocolVersion: Version, Dig: true})
	require.NoError(t, err)
	assert.NotContains(t, string(b), `"player"`)
	assert.NotContains(t, string(b), `"aim"`)
	assert.Contains(t, string(b), `"dig":true`)
}

func TestFrame_HandleIDsEncodeAsStrings(t *testing.T) {
	// Packed handles carry the generation in the high bits; this one is past 2^53.
	const id = uint64(1)<<54 | 12
	f := FrameMsg{
		Type:        TypeFrame,
		Turrets:     []TurretState{{ID: id, Kind: "basic"}},
		Projectiles: []ProjectileState{{ID: id + 1}},
		Debris:      []DebrisState{{ID: id + 2}},
		Events:      []Event{{Kind: "TURRET_REMOVED", Target: id}, {Kind: "PHASE"}},
	}
	b, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"id":"18014398509481996"`)
	assert.Contains(t, string(b), `"target":"18014398509481996"`)
	assert.NotContains(t, string(b), `"target":"0"`)

	var back FrameMsg
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, id, back.Turrets[0].ID)
	assert.Equal(t, id+1, back.Projectiles[0].ID)
	assert.Equal(t, id+2, back.Debris[0].ID)
	assert.Equal(t, id, back.Events[0].Target)
	assert.Zero(t, back.Events[1].Target)
}
