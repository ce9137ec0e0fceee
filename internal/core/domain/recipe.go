package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
)

// Recipe is the build descriptor of the runtime image: base interpreter,
// working directory, dependency install step, program files, log directory
// and the default command.
type Recipe struct {
	BaseImage string            `mapstructure:"base_image" json:"base_image" yaml:"base_image"`
	WorkDir   string            `mapstructure:"workdir" json:"workdir" yaml:"workdir"`
	Manifest  string            `mapstructure:"manifest" json:"manifest" yaml:"manifest"`
	Install   string            `mapstructure:"install" json:"install" yaml:"install"`
	Sources   []string          `mapstructure:"sources" json:"sources" yaml:"sources"`
	Assets    []string          `mapstructure:"assets" json:"assets" yaml:"assets"`
	LogDir    string            `mapstructure:"log_dir" json:"log_dir" yaml:"log_dir"`
	Command   []string          `mapstructure:"command" json:"command" yaml:"command"`
	Env       map[string]string `mapstructure:"env" json:"env,omitempty" yaml:"env,omitempty"`
	Labels    map[string]string `mapstructure:"labels" json:"labels,omitempty" yaml:"labels,omitempty"`
}

// DefaultRecipe describes the five-letters bot image.
func DefaultRecipe() Recipe {
	return Recipe{
		BaseImage: "python:3.11-slim",
		WorkDir:   "/app",
		Manifest:  "requirements.txt",
		Install:   "pip install --no-cache-dir -r requirements.txt",
		Sources:   []string{"bot.py"},
		Assets:    []string{"rus.txt"},
		LogDir:    "/app/logs",
		Command:   []string{"python", "bot.py"},
		Env:       map[string]string{"LOG_DIR": "/app/logs"},
	}
}

// Files returns every context-relative file the recipe copies into the image,
// manifest first.
func (r Recipe) Files() []string {
	files := make([]string, 0, 1+len(r.Sources)+len(r.Assets))
	files = append(files, r.Manifest)
	files = append(files, r.Sources...)
	files = append(files, r.Assets...)
	return files
}

// Validate checks that the recipe can be rendered and built.
func (r Recipe) Validate() error {
	var errs []error
	if strings.TrimSpace(r.BaseImage) == "" {
		errs = append(errs, errors.New("base_image is required"))
	}
	if !path.IsAbs(r.WorkDir) {
		errs = append(errs, fmt.Errorf("workdir %q must be an absolute path", r.WorkDir))
	}
	if !path.IsAbs(r.LogDir) {
		errs = append(errs, fmt.Errorf("log_dir %q must be an absolute path", r.LogDir))
	}
	if strings.TrimSpace(r.Manifest) == "" {
		errs = append(errs, errors.New("manifest is required"))
	}
	if strings.TrimSpace(r.Install) == "" {
		errs = append(errs, errors.New("install is required"))
	}
	if len(r.Sources) == 0 {
		errs = append(errs, errors.New("at least one source file is required"))
	}
	if len(r.Command) == 0 {
		errs = append(errs, errors.New("command is required"))
	}
	for _, f := range r.Files() {
		if err := checkContextPath(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func checkContextPath(p string) error {
	if strings.TrimSpace(p) == "" {
		return errors.New("empty file name")
	}
	if path.IsAbs(p) {
		return fmt.Errorf("file %q must be relative to the build context", p)
	}
	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("file %q escapes the build context", p)
	}
	return nil
}

// Dockerfile renders the build descriptor. Output is deterministic for a
// given recipe and label set.
func (r Recipe) Dockerfile(labels map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "FROM %s\n\n", r.BaseImage)
	fmt.Fprintf(&b, "WORKDIR %s\n\n", r.WorkDir)

	fmt.Fprintf(&b, "COPY %s\n", jsonList([]string{r.Manifest, copyTarget(r.Manifest)}))
	fmt.Fprintf(&b, "RUN %s\n\n", r.Install)

	var top []string
	for _, f := range append(append([]string{}, r.Sources...), r.Assets...) {
		if path.Dir(path.Clean(f)) == "." {
			top = append(top, f)
			continue
		}
		fmt.Fprintf(&b, "COPY %s\n", jsonList([]string{f, copyTarget(f)}))
	}
	if len(top) > 0 {
		fmt.Fprintf(&b, "COPY %s\n", jsonList(append(top, "./")))
	}
	b.WriteString("\n")

	if len(r.Env) > 0 {
		for _, k := range sortedKeys(r.Env) {
			fmt.Fprintf(&b, "ENV %s=%s\n", k, quote(r.Env[k]))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "RUN %s\n", jsonList([]string{"mkdir", "-p", r.LogDir}))
	fmt.Fprintf(&b, "VOLUME %s\n\n", jsonList([]string{r.LogDir}))

	merged := make(map[string]string, len(r.Labels)+len(labels))
	for k, v := range r.Labels {
		merged[k] = v
	}
	for k, v := range labels {
		merged[k] = v
	}
	for _, k := range sortedKeys(merged) {
		fmt.Fprintf(&b, "LABEL %s=%s\n", k, quote(merged[k]))
	}
	if len(merged) > 0 {
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "CMD %s\n", jsonList(r.Command))
	return b.String()
}

// copyTarget keeps nested files at the same relative path under WORKDIR.
func copyTarget(f string) string {
	dir := path.Dir(path.Clean(f))
	if dir == "." {
		return "./"
	}
	return dir + "/"
}

func jsonList(items []string) string {
	out, _ := json.Marshal(items)
	return string(out)
}

func quote(s string) string {
	out, _ := json.Marshal(s)
	return string(out)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
