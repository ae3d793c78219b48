package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePersonaRoundTrip(t *testing.T) {
	for _, p := range Personas() {
		assert.Equal(t, p, ParsePersona(p.String()))
	}
}

func TestParsePersonaUnknownFallsBack(t *testing.T) {
	assert.Equal(t, PersonaComprehensive, ParsePersona(""))
	assert.Equal(t, PersonaComprehensive, ParsePersona("astronaut"))
	assert.Equal(t, PersonaComprehensive, ParsePersona("Analyst"))
}

func TestMediaTarget(t *testing.T) {
	for _, p := range Personas() {
		if p == PersonaVideographer {
			assert.Equal(t, MediaVideo, p.MediaTarget())
		} else {
			assert.Equal(t, MediaImage, p.MediaTarget(), p.String())
		}
	}
}

func TestPersonasAreDistinct(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range Personas() {
		assert.False(t, seen[p.String()], p.String())
		seen[p.String()] = true
		assert.NotEmpty(t, p.Label())
		assert.NotEmpty(t, p.Instruction())
	}
	assert.Len(t, seen, 7)
}
