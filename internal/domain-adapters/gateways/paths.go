package gateways

import (
	"path/filepath"
	"strings"

	"github.com/ochairo/roaster/internal/domain/interfaces"
)

const unknownPath = "unknown"

// treeRelativePath converts a tool-reported path into a path relative to root.
// Relative inputs are interpreted against root, after stripping a relative root
// prefix the tool echoed back. Paths escaping the tree are reduced to their base
// name and reported with ok=false.
func treeRelativePath(root, reported string) (path string, ok bool) {
	if strings.TrimSpace(reported) == "" {
		return unknownPath, true
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = filepath.Clean(root)
	}

	candidate := filepath.Clean(reported)
	if !filepath.IsAbs(candidate) {
		if !filepath.IsAbs(root) {
			if rel, err := filepath.Rel(filepath.Clean(root), candidate); err == nil && !escapes(rel) {
				candidate = rel
			}
		}
		candidate = filepath.Join(absRoot, candidate)
	}

	rel, err := filepath.Rel(absRoot, candidate)
	if err != nil || escapes(rel) {
		return filepath.Base(reported), false
	}
	if rel == "." {
		return filepath.Base(absRoot), true
	}

	return filepath.ToSlash(rel), true
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// sanitizePath is treeRelativePath plus a warning for escaping paths
func sanitizePath(logger interfaces.Logger, scanner, root, reported string) string {
	path, ok := treeRelativePath(root, reported)
	if !ok {
		logger.Warn("tool reported a path outside the working tree",
			interfaces.F("scanner", scanner),
			interfaces.F("reported", filepath.Base(reported)))
	}
	return path
}
