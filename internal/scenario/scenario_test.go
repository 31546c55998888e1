package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScenario(t *testing.T) {
	sc := Default()
	assert.Equal(t, "ABCD", sc.Code)
	assert.Equal(t, []string{"ENGLAND", "FRANCE"}, sc.Powers())
	require.Len(t, sc.Phases, 3)
	assert.Equal(t, "S1901M", sc.Phases[0].Name)
	assert.Contains(t, sc.Phases[0].Powers["FRANCE"].Possible["PAR"], "A PAR - BUR")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
code: wxyz
host: a
players:
  - username: a
phases:
  - name: S1901M
`), 0o600))

	sc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "WXYZ", sc.Code)
	assert.Equal(t, "standard", sc.Map)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"bad code":          "code: AB1O\nhost: a\nplayers: [{username: a}]\nphases: [{name: S1901M}]\n",
		"no players":        "host: a\nphases: [{name: S1901M}]\n",
		"host not a player": "host: z\nplayers: [{username: a}]\nphases: [{name: S1901M}]\n",
		"duplicate player":  "host: a\nplayers: [{username: a}, {username: a}]\nphases: [{name: S1901M}]\n",
		"no phases":         "host: a\nplayers: [{username: a}]\n",
		"lower case loc":    "host: a\nplayers: [{username: a}]\nphases: [{name: S1901M, powers: {FRANCE: {possible: {par: [A PAR H]}}}}]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	sc := Default()
	cp := sc.Clone()
	cp.Players[0].Power = "GERMANY"
	cp.Phases[0].Powers["FRANCE"].Possible["PAR"][0] = "changed"

	assert.Equal(t, "FRANCE", sc.Players[0].Power)
	assert.Equal(t, "A PAR H", sc.Phases[0].Powers["FRANCE"].Possible["PAR"][0])
}

func TestValidCode(t *testing.T) {
	assert.True(t, ValidCode("AB23"))
	assert.False(t, ValidCode("ABC"))
	assert.False(t, ValidCode("AB10"))
}
