package jobsearch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillsync/skillsync/internal/skills"
)

func testBatch() *Batch {
	return &Batch{
		Items: []*Listing{
			{ID: "1", Title: "Go Developer", Company: "Acme", URL: "https://a/1", Required: skills.NewSkillSet("go")},
			{ID: "2", Title: "Python Developer", Company: "Acme", URL: "https://a/2", Required: skills.NewSkillSet("python", "sql")},
			{ID: "3", Title: "SRE", Company: "Globex", URL: "https://g/3"},
		},
	}
}

func TestBatchExcludePreservesOrder(t *testing.T) {
	t.Parallel()

	b := testBatch()
	removed := b.ExcludeIDs([]string{"2", "missing"})

	assert.Equal(t, []string{"2"}, removed)
	assert.Equal(t, []string{"1", "3"}, b.IDs())
	assert.Nil(t, b.FindByID("2"))
	assert.NotNil(t, b.FindByID("3"))
}

func TestBatchCloneIsIndependent(t *testing.T) {
	t.Parallel()

	b := testBatch()
	c := b.Clone()
	c.ExcludeIDs([]string{"1"})

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, 2, c.Len())

	var nilBatch *Batch
	assert.Nil(t, nilBatch.Clone())
	assert.Equal(t, 0, nilBatch.Len())
}

func TestReportByCompany(t *testing.T) {
	t.Parallel()

	report := testBatch().ReportByCompany()

	require.Len(t, report["Acme"], 2)
	assert.Equal(t, "python, sql", report["Acme"][1]["required"])
	require.Len(t, report["Globex"], 1)
	assert.Equal(t, "SRE", report["Globex"][0]["title"])
}

func TestExcludedFileRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "exclude.json")

	empty, err := ReadExcludedFile(path)
	require.NoError(t, err)
	assert.Empty(t, empty.Items)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	empty.Append(testBatch().ToExcluded(now))
	empty.Append(testBatch().ToExcluded(now))
	require.NoError(t, empty.WriteFile(path))

	loaded, err := ReadExcludedFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, loaded.IDs())
	assert.Equal(t, "Acme", loaded.Items[0].Company)

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	blank, err := ReadExcludedFile(path)
	require.NoError(t, err)
	assert.Empty(t, blank.Items)
}

func TestDumpToTmpFile(t *testing.T) {
	t.Parallel()

	name, err := testBatch().DumpToTmpFile()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Remove(name) })

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Go Developer"`)
}
