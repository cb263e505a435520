package upload

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// BusinessID derives the storage id of a business from its display name.
// Every rune outside [A-Za-z0-9_-] becomes one underscore, so the result
// depends on the name alone. A blank name falls back to a timestamp id.
func BusinessID(name string, now time.Time) string {
	if strings.TrimSpace(name) == "" {
		return fmt.Sprintf("business_%d", now.UnixMilli())
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
}

// ObjectPath returns {baseFolder}/{businessID}/{category}/{name}{extension}.
func ObjectPath(baseFolder, businessID, category, name, extension string) string {
	parts := make([]string, 0, 4)
	if base := strings.Trim(baseFolder, "/"); base != "" {
		parts = append(parts, base)
	}
	parts = append(parts, businessID, category, name+extension)
	return strings.Join(parts, "/")
}

// Folder returns the folder part of an object path.
func Folder(objectPath string) string {
	dir := path.Dir(objectPath)
	if dir == "." {
		return ""
	}
	return dir
}
