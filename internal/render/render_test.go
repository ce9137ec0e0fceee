package render

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/melih/redeploy/internal/core/domain"
	"github.com/melih/redeploy/internal/core/services/lifecycle"
)

func sampleContainers() []domain.Container {
	return []domain.Container{
		{ID: "0123456789ab", Name: "five-letters-bot", Image: "five-letters-bot", Status: "Up 2 minutes", State: "running", Created: time.Now().Add(-2 * time.Minute)},
		{ID: "ba9876543210", Name: "old-job", Image: "busybox", Status: "Exited (0) 3 days ago", State: "exited"},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatTable, "table": FormatTable, "JSON": FormatJSON, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	require.Error(t, err)
}

func TestContainersTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Containers(&buf, FormatTable, sampleContainers()))

	out := buf.String()
	for _, want := range []string{"0123456789ab", "five-letters-bot", "Up 2 minutes", "old-job", "Exited (0) 3 days ago", "2 minutes ago"} {
		assert.Contains(t, out, want)
	}
}

func TestContainersEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Containers(&buf, FormatTable, nil))
	assert.Equal(t, "No containers\n", buf.String())
}

func TestContainersJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Containers(&buf, FormatJSON, sampleContainers()))

	var got []domain.Container
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "old-job", got[1].Name)
}

func TestReportTable(t *testing.T) {
	rep := &lifecycle.Report{
		CycleID:   "c-1",
		Container: "five-letters-bot",
		Phase:     domain.PhaseFailed,
		Recovered: domain.PhaseBuilding,
		Steps: []lifecycle.Step{
			{Name: "stop", Status: lifecycle.StepSkipped, Detail: "container absent"},
			{Name: "build", Status: lifecycle.StepFailed, Detail: "image build failed: pip"},
			{Name: "report", Status: lifecycle.StepDone},
		},
		Containers: sampleContainers(),
		Error:      "image build failed: pip",
	}

	var buf bytes.Buffer
	require.NoError(t, Report(&buf, FormatTable, rep))
	out := buf.String()
	assert.Contains(t, out, "Cycle c-1 for five-letters-bot: failed")
	assert.Contains(t, out, "Recovered from interrupted phase building")
	assert.Contains(t, out, "container absent")
	assert.Contains(t, out, "Error: image build failed: pip")
	assert.Contains(t, out, "old-job")
}

func TestReportYAML(t *testing.T) {
	rep := &lifecycle.Report{CycleID: "c-2", Container: "bot", Phase: domain.PhaseRunning}

	var buf bytes.Buffer
	require.NoError(t, Report(&buf, FormatYAML, rep))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "c-2", got["cycle_id"])
	assert.Equal(t, "running", got["phase"])
}

func TestStatusTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Status(&buf, FormatTable, &lifecycle.Status{
		Image:   &domain.Image{ID: "sha256:0123456789abcdef", Tags: []string{"five-letters-bot:latest"}},
		Journal: &domain.Journal{CycleID: "c-3", Phase: domain.PhaseStarting},
	}))

	out := buf.String()
	assert.Contains(t, out, "absent")
	assert.Contains(t, out, "0123456789ab")
	assert.Contains(t, out, "starting (interrupted)")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
