// Package walk discovers the file list a batch CLI operates over.
// Grounded on the upstream tree's ConcurrentlyWalkDir (common/dir.go,
// duplicated near-identically in misc.go/util.go/core/file.go): that
// function both walks a directory to a file list and fires a bounded
// goroutine per file. This package keeps only the walk half — file
// discovery is a policy concern of each CLI, not the library core
// (spec.md §1's external-collaborator boundary) — and leaves
// concurrency bounding to the caller, since dcmanon and dcminspect
// bound concurrency differently (dcmanon processes its file list
// sequentially inside anonymize.Run; dcminspect guards a worker pool
// sized from config.Get().OpenFileLimit).
package walk

import (
	"os"
	"path/filepath"
)

// Files returns every non-directory entry beneath root, in filepath.Walk's
// visitation order. If root is not a directory, it is returned as a
// single-element slice unchanged.
func Files(root string) ([]string, error) {
	stat, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !stat.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Expand runs Files over each of paths and concatenates the results,
// the shape a CLI needs for a mix of file and directory arguments.
func Expand(paths []string) ([]string, error) {
	var all []string
	for _, p := range paths {
		files, err := Files(p)
		if err != nil {
			return nil, err
		}
		all = append(all, files...)
	}
	return all, nil
}
