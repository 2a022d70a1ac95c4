package skills

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkillSetOperations(t *testing.T) {
	t.Parallel()

	a := NewSkillSet("python", "sql", "docker", "")
	b := NewSkillSet("python", "go")

	assert.Equal(t, 3, a.Len())
	assert.True(t, a.Has("sql"))
	assert.False(t, a.Has(""))
	assert.Equal(t, []string{"python"}, a.Intersect(b).Sorted())
	assert.Equal(t, []string{"docker", "sql"}, a.Difference(b).Sorted())
	assert.Equal(t, []string{"docker", "go", "python", "sql"}, a.Union(b).Sorted())

	var zero SkillSet
	assert.Equal(t, 0, zero.Len())
	assert.False(t, zero.Has("python"))
	assert.Equal(t, 0, zero.Intersect(a).Len())
}

func TestSkillSetJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NewSkillSet("sql", "python"))
	require.NoError(t, err)
	assert.JSONEq(t, `["python","sql"]`, string(data))

	var decoded SkillSet
	require.NoError(t, json.Unmarshal([]byte(`["go","go","rust"]`), &decoded))
	assert.Equal(t, []string{"go", "rust"}, decoded.Sorted())
}
