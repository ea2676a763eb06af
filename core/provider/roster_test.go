package provider

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/emsdispatch/core/model"
)

const rosterYAML = `
providers:
  - id: AMB-1
    kind: ambulance
    tier: micu
    location: Downtown
  - id: HOSP-1
    kind: hospital
    tier: regional
    capacity: 2
    capabilities:
      trauma: 90
  - id: HOSP-2
    kind: hospital
    specialists:
      - specialty: Neurosurgery
        skill: 91
`

func TestDecodeRosterYAML(t *testing.T) {
	specs, err := DecodeRoster(strings.NewReader(rosterYAML), "yaml")
	require.NoError(t, err)
	require.Len(t, specs, 3)

	amb, err := specs[0].State()
	require.NoError(t, err)
	assert.Equal(t, model.Ambulance, amb.Kind)
	assert.True(t, amb.Available)
	assert.Equal(t, 100, amb.Capability(model.KindCardiac))

	h1, err := specs[1].State()
	require.NoError(t, err)
	assert.Equal(t, 2, h1.Capacity)
	assert.Equal(t, 90, h1.Capability(model.KindTrauma))
	assert.Len(t, h1.Specialists, 4)

	h2, err := specs[2].State()
	require.NoError(t, err)
	assert.Equal(t, "general", h2.Tier)
	assert.Equal(t, 10, h2.Capacity)
	require.Len(t, h2.Specialists, 1)
	assert.True(t, h2.Specialists[0].Available)
}

func TestLoadRosterJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.json")
	data := `{"providers":[{"id":"A1","kind":"ambulance","location":"Suburb_A"}]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	specs, err := LoadRoster(path)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	st, err := specs[0].State()
	require.NoError(t, err)
	assert.Equal(t, "basic", st.Tier)
	assert.Equal(t, model.Location("Suburb_A"), st.Location)
}

func TestSpecStateErrors(t *testing.T) {
	_, err := Spec{Kind: "ambulance"}.State()
	assert.Error(t, err)
	_, err = Spec{ID: "X", Kind: "boat"}.State()
	assert.Error(t, err)
	_, err = Spec{ID: "X", Kind: "ambulance", Tier: "trauma_center"}.State()
	assert.Error(t, err)
	_, err = Spec{ID: "X", Kind: "ambulance", Capabilities: map[string]int{"dental": 3}}.State()
	assert.Error(t, err)
	_, err = DecodeRoster(strings.NewReader(""), "toml")
	assert.Error(t, err)
}
