package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRecipeDockerfile(t *testing.T) {
	r := DefaultRecipe()
	require.NoError(t, r.Validate())

	want := `FROM python:3.11-slim

WORKDIR /app

COPY ["requirements.txt","./"]
RUN pip install --no-cache-dir -r requirements.txt

COPY ["bot.py","rus.txt","./"]

ENV LOG_DIR="/app/logs"

RUN ["mkdir","-p","/app/logs"]
VOLUME ["/app/logs"]

CMD ["python","bot.py"]
`
	assert.Equal(t, want, r.Dockerfile(nil))
}

func TestDockerfileStepOrder(t *testing.T) {
	df := DefaultRecipe().Dockerfile(map[string]string{LabelRevision: "abc123"})

	order := []string{"FROM ", "WORKDIR ", "COPY [\"requirements.txt\"", "RUN pip", "COPY [\"bot.py\"", "RUN [\"mkdir\"", "VOLUME ", "LABEL ", "CMD "}
	last := -1
	for _, step := range order {
		idx := strings.Index(df, step)
		require.Greater(t, idx, last, "step %q out of order in:\n%s", step, df)
		last = idx
	}
	assert.Contains(t, df, `LABEL io.redeploy.revision="abc123"`)
}

func TestDockerfileIsDeterministic(t *testing.T) {
	r := DefaultRecipe()
	r.Env = map[string]string{"B": "2", "A": "1", "C": "3"}
	r.Labels = map[string]string{"z": "1", "a": "2"}

	first := r.Dockerfile(map[string]string{"m": "x"})
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, r.Dockerfile(map[string]string{"m": "x"}))
	}
	assert.Less(t, strings.Index(first, "ENV A="), strings.Index(first, "ENV B="))
}

func TestDockerfileNestedFiles(t *testing.T) {
	r := DefaultRecipe()
	r.Assets = []string{"data/rus.txt"}

	df := r.Dockerfile(nil)
	assert.Contains(t, df, `COPY ["data/rus.txt","data/"]`)
	assert.Contains(t, df, `COPY ["bot.py","./"]`)
}

func TestRecipeValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Recipe)
		errMsg string
	}{
		{"missing base", func(r *Recipe) { r.BaseImage = "" }, "base_image"},
		{"relative workdir", func(r *Recipe) { r.WorkDir = "app" }, "workdir"},
		{"relative log dir", func(r *Recipe) { r.LogDir = "logs" }, "log_dir"},
		{"no sources", func(r *Recipe) { r.Sources = nil }, "source"},
		{"no command", func(r *Recipe) { r.Command = nil }, "command"},
		{"escaping asset", func(r *Recipe) { r.Assets = []string{"../secret.txt"} }, "escapes"},
		{"absolute source", func(r *Recipe) { r.Sources = []string{"/etc/passwd"} }, "relative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := DefaultRecipe()
			tt.mutate(&r)
			err := r.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestContainerRunning(t *testing.T) {
	assert.True(t, Container{State: "running"}.Running())
	assert.True(t, Container{State: "restarting"}.Running())
	assert.False(t, Container{State: "exited"}.Running())
	assert.False(t, Container{State: "created"}.Running())
}

func TestDockerfileLogDirWithSpaces(t *testing.T) {
	r := DefaultRecipe()
	r.LogDir = "/app/my logs"
	require.NoError(t, r.Validate())

	out := r.Dockerfile(nil)
	assert.Contains(t, out, "RUN [\"mkdir\",\"-p\",\"/app/my logs\"]\n")
	assert.Contains(t, out, "VOLUME [\"/app/my logs\"]\n")
}
