package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/pondstat-cli/internal/study"
	"github.com/KaramelBytes/pondstat-cli/internal/utils"
	"github.com/spf13/cobra"
)

// outputFlags decides where a command's result goes: --output path, a
// study directory, or stdout.
type outputFlags struct {
	path   string
	study  string
	desc   string
	format string
}

func (o *outputFlags) bind(c *cobra.Command, formats bool) {
	c.Flags().StringVarP(&o.path, "output", "o", "", "path to write the result")
	c.Flags().StringVarP(&o.study, "study", "s", "", "study name to store the result in")
	c.Flags().StringVar(&o.desc, "desc", "", "description when storing in a study")
	if formats {
		c.Flags().StringVar(&o.format, "format", "", "output format: md | csv (default: by --output extension, md otherwise)")
	}
}

// resolvedFormat returns "md" or "csv".
func (o *outputFlags) resolvedFormat() (string, error) {
	switch strings.ToLower(strings.TrimSpace(o.format)) {
	case "md", "markdown":
		return "md", nil
	case "csv":
		return "csv", nil
	case "":
		if strings.EqualFold(filepath.Ext(o.path), ".csv") {
			return "csv", nil
		}
		return "md", nil
	default:
		return "", fmt.Errorf("unsupported --format: %s (use md|csv)", o.format)
	}
}

// emit renders the result with write and delivers it. name is the file
// name used inside a study, kind and rows are recorded in its manifest.
func (o *outputFlags) emit(name, kind string, rows int, write func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	written := false
	if o.path != "" {
		if dir := filepath.Dir(o.path); dir != "." {
			if err := utils.EnsureDir(dir); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
		}
		if err := utils.SafeWriteFile(o.path, buf.Bytes()); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Printf("✓ Wrote %s to %s\n", kind, o.path)
		written = true
	}
	if o.study != "" {
		s, err := loadStudy(o.study)
		if err != nil {
			return err
		}
		out, err := s.OutputPath(name)
		if err != nil {
			return err
		}
		if err := utils.SafeWriteFile(out, buf.Bytes()); err != nil {
			return fmt.Errorf("write study output: %w", err)
		}
		desc := o.desc
		if desc == "" {
			desc = "Generated " + kind
		}
		a := s.Record(out, kind, desc, rows)
		if err := s.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Added %s to study '%s' as %s\n", kind, s.Name, a.Path)
		written = true
	}
	if !written {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}
	return nil
}

func defaultStudiesDir() (string, error) {
	if cfg != nil && cfg.StudiesDir != "" {
		dir := cfg.StudiesDir
		if strings.HasPrefix(dir, "~") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("resolve home dir: %w", err)
			}
			dir = strings.TrimPrefix(dir, "~")
			dir = strings.TrimPrefix(dir, string(os.PathSeparator))
			dir = strings.TrimPrefix(dir, "/")
			dir = filepath.Join(home, dir)
		}
		dir = filepath.Clean(dir)
		if err := utils.EnsureDir(dir); err != nil {
			return "", err
		}
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	dir := filepath.Join(home, ".pondstat", "studies")
	if err := utils.EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

func resolveStudyDirByName(name string) (string, error) {
	if name == "" {
		return "", errors.New("study name is required")
	}
	// "." means the study containing the working directory
	if name == "." {
		return utils.FindStudyRoot("")
	}
	if err := study.ValidateName(name); err != nil {
		return "", err
	}
	root, err := defaultStudiesDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, name), nil
}

func loadStudy(name string) (*study.Study, error) {
	dir, err := resolveStudyDirByName(name)
	if err != nil {
		return nil, err
	}
	return study.Load(dir)
}

// stem is the file name without directory and extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
