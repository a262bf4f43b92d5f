// Package fileutil provides error-tolerant directory scanning with glob filters.
//
// ScanDirectory walks a directory, skips excluded and (optionally) hidden
// directories, and returns the sorted absolute paths of regular files whose
// slash-separated path relative to the scanned directory matches one of the
// include globs. Symlinks and other non-regular entries are never returned.
//
// Globs use github.com/gobwas/glob syntax with '/' as separator:
//
//	src/*.c                  files directly under src/
//	{src,include}/**.{c,h}   any .c or .h file below src/ or include/
//	**/src/**.cpp            .cpp files below a src/ directory at any depth > 0
//
// Errors on individual entries (for example a subdirectory that cannot be
// read) are collected in ScanResult.Errors and scanning continues. Only a
// missing root or an invalid glob fails the whole scan.
//
// Example:
//
//	result, err := fileutil.ScanDirectory(root, fileutil.ScanOptions{
//	    Include:     []string{"{src,include}/**.{c,cpp,h}"},
//	    ExcludeDirs: []string{".git", "build"},
//	})
//	if err != nil {
//	    return err
//	}
//	for _, path := range result.Files {
//	    fmt.Println(path)
//	}
package fileutil
