// Package mounts provides abstracted file mounts for use as fs.FS
// filesystems. A mount is backed either by an embedded filesystem or, when a
// directory path is supplied, by that directory on disk. The latter is used
// in development mode so that templates, static files and sql can be edited
// without recompiling.
package mounts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// FileMount is a mount that may be supplied by either an embedded fs.FS or a
// directory path.
type FileMount struct {
	MountName string
	fs.FS
}

// String describes a FileMount as a list of files and directories indented
// by level.
func (fm FileMount) String() string {
	o := fmt.Sprintf("fileMount %q:\n", fm.MountName)
	s, _ := PrintFS(fm.FS)
	return o + s
}

// ErrInvalidPath reports an invalid mount name.
type ErrInvalidPath struct {
	mountName string
}

func (e ErrInvalidPath) Error() string {
	return fmt.Sprintf("mount name %q is not a valid fs.ValidPath path", e.mountName)
}

// New takes an embedded fs.FS or a path to a directory. If dirPath is "",
// the embedded fs is used, sub-mounted at mountName so that it works like an
// os.DirFS rooted at that directory. Otherwise the directory at dirPath is
// mounted directly.
//
// For example, given
//
//	//go:embed templates
//	var templatesFS embed.FS
//
// the invocation New("templates", templatesFS, "") mounts the embedded
// filesystem at the equivalent of "templates/" rather than ".".
func New(mountName string, embeddedFS fs.FS, dirPath string) (*FileMount, error) {

	if mountName == "" {
		return nil, errors.New("no mount name provided for new file mount")
	}
	if !fs.ValidPath(mountName) {
		return nil, ErrInvalidPath{mountName}
	}

	if dirPath == "" {
		subFS, err := fs.Sub(embeddedFS, mountName)
		if err != nil {
			return nil, fmt.Errorf("could not sub-mount embedded fs at %q: %v", mountName, err)
		}
		return &FileMount{
			mountName,
			subFS,
		}, nil
	}

	s, err := os.Stat(dirPath)
	if err != nil {
		return nil, fmt.Errorf("new mount at %q error: %s", dirPath, err)
	}
	if !s.IsDir() {
		return nil, fmt.Errorf("new mount at %q is not a directory", dirPath)
	}

	return &FileMount{
		mountName,
		os.DirFS(dirPath),
	}, nil
}

// PrintFS makes structured print output from an fs.FS.
func PrintFS(thisFS fs.FS) (string, error) {
	var printOutput strings.Builder
	var topSeen bool
	tpl := "%s[%s] %s%s (%s)\n"

	err := fs.WalkDir(thisFS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err // propagate
		}
		if !topSeen { // verbatim root as "[d] ./ (./)"
			_, err = printOutput.WriteString(fmt.Sprintf(tpl, "\n", "d", ".", "/", "."))
			if err != nil {
				return fmt.Errorf("printOutput error: %v", err)
			}
			topSeen = true
			return nil
		}
		depth := strings.Count(path, string(os.PathSeparator))
		indent := strings.Repeat("  ", depth)
		typer := "f"
		name := d.Name()
		slash := " "
		if d.IsDir() {
			slash = string(os.PathSeparator)
			typer = "d"
		}
		_, err = printOutput.WriteString(fmt.Sprintf(tpl, indent, typer, name, slash, path))
		return err
	})
	return printOutput.String(), err
}
