package transformer

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whit3rabbit/luamixer/internal/lua"
)

func TestAntiTamperNoFalsePositive(t *testing.T) {
	src := `print("payload")`
	out := applySteps(t, src, 17, mustStep(t, "AntiTamper", nil))
	requireSameBehavior(t, src, out)
}

func TestAntiTamperGuardRunsFirst(t *testing.T) {
	src := `print(1)`
	out := applySteps(t, src, 17, mustStep(t, "AntiTamper", nil))
	idx := strings.Index(out, "print(1)")
	require.Greater(t, idx, 0, "guard code must precede the payload: %s", out)
	assert.Contains(t, out[:idx], "string.byte")
}

var markerPattern = regexp.MustCompile(`"([A-Za-z0-9]{24,32})"`)

func TestAntiTamperDetectsModifiedMarker(t *testing.T) {
	src := `print("ok")`
	out := applySteps(t, src, 17, mustStep(t, "AntiTamper", nil))

	m := markerPattern.FindStringSubmatch(out)
	require.NotNil(t, m, "marker string expected in output: %s", out)
	marker := m[1]

	// Flip one marker character the way a casual patcher would.
	replacement := "A"
	if marker[0] == 'A' {
		replacement = "B"
	}
	tampered := strings.Replace(out, marker, replacement+marker[1:], 1)

	_, err := lua.RunSource(tampered, lua.Lua51)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "integrity check failed")
}

func TestChecksum(t *testing.T) {
	assert.Equal(t, 0, Checksum(""))
	// Position weighting distinguishes reordered content.
	assert.NotEqual(t, Checksum("ab"), Checksum("ba"))
	// byte('a')*1 + byte('b')*2 within the modulus.
	assert.Equal(t, int('a')+int('b')*2, Checksum("ab"))
}

func TestAntiTamperMarkerVariesWithSeed(t *testing.T) {
	src := `print(1)`
	first := applySteps(t, src, 1, mustStep(t, "AntiTamper", nil))
	second := applySteps(t, src, 2, mustStep(t, "AntiTamper", nil))
	assert.NotEqual(t, first, second)
}
