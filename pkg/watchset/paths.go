package watchset

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// normalize returns dirs as sorted, unique, absolute paths. Blank entries
// are dropped.
func normalize(dirs []string) []string {
	seen := make(map[string]struct{}, len(dirs))
	out := make([]string, 0, len(dirs))

	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		abs, err := filepath.Abs(ExpandHome(dir))
		if err != nil {
			abs = filepath.Clean(dir)
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}

	sort.Strings(out)
	return out
}

// without returns set minus remove. Both are normalized.
func without(set, remove []string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, dir := range normalize(remove) {
		drop[dir] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for _, dir := range set {
		if _, ok := drop[dir]; !ok {
			out = append(out, dir)
		}
	}
	return out
}

// ExpandHome expands "~" and a leading "~/" to the user's home directory.
// Other paths, including "~name" forms, are returned unchanged.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}
	return filepath.Join(homeDir, path[2:])
}

func clone(s *Set) *Set {
	c := *s
	c.Directories = append([]string(nil), s.Directories...)
	return &c
}
