package builder

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/moby/patternmatcher/ignorefile"
	"github.com/spf13/afero"
)

const dockerignoreName = ".dockerignore"

// MissingFilesError lists the declared build inputs absent from the context.
type MissingFilesError struct {
	Files []string
}

func (e *MissingFilesError) Error() string {
	return fmt.Sprintf("missing build inputs: %v", e.Files)
}

// checkInputs verifies that every file the recipe copies exists in srcDir.
func checkInputs(fs afero.Fs, srcDir string, files []string) error {
	var missing []string
	for _, f := range files {
		info, err := fs.Stat(filepath.Join(srcDir, filepath.FromSlash(f)))
		if err != nil || info.IsDir() {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &MissingFilesError{Files: missing}
	}
	return nil
}

// stage copies the declared files from srcDir on src into dstDir on dst and
// writes the Dockerfile next to them. Only declared files reach the build
// context, so unrelated files in the source tree cannot change the image.
func stage(src afero.Fs, srcDir string, dst afero.Fs, dstDir string, files []string, dockerfile []byte) error {
	if err := checkInputs(src, srcDir, files); err != nil {
		return err
	}

	for _, f := range files {
		rel := filepath.FromSlash(f)
		data, err := afero.ReadFile(src, filepath.Join(srcDir, rel))
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		info, err := src.Stat(filepath.Join(srcDir, rel))
		if err != nil {
			return fmt.Errorf("stat %s: %w", f, err)
		}

		target := filepath.Join(dstDir, rel)
		if err := dst.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(target), err)
		}
		if err := afero.WriteFile(dst, target, data, info.Mode().Perm()|0o444); err != nil {
			return fmt.Errorf("write %s: %w", f, err)
		}
	}

	if err := afero.WriteFile(dst, filepath.Join(dstDir, dockerfileName), dockerfile, 0o644); err != nil {
		return fmt.Errorf("write Dockerfile: %w", err)
	}
	return nil
}

// defaultExcludes never reach a user Dockerfile's context: the env file is
// injected at run time and the repository metadata is not a build input.
var defaultExcludes = []string{".git", ".env"}

// contextExcludes returns the exclude patterns for a whole-directory context:
// the defaults plus .dockerignore, keeping the Dockerfile and .dockerignore
// themselves as the docker CLI does.
func contextExcludes(fs afero.Fs, srcDir, dockerfile string) ([]string, error) {
	excludes := append([]string{}, defaultExcludes...)

	f, err := fs.Open(filepath.Join(srcDir, dockerignoreName))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("open %s: %w", dockerignoreName, err)
	default:
		patterns, err := ignorefile.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", dockerignoreName, err)
		}
		excludes = append(excludes, patterns...)
	}

	return append(excludes, "!"+filepath.ToSlash(filepath.Clean(dockerfile)), "!"+dockerignoreName), nil
}
