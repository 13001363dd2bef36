package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// PermissionError reports a config file or directory we may not read or write.
type PermissionError struct {
	Path    string
	Op      string // "read" or "write"
	Fix     string
	Details string
}

func newPermissionError(op, path, details string) *PermissionError {
	return &PermissionError{Path: path, Op: op, Fix: permissionFix(op, path), Details: details}
}

func (e *PermissionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "permission denied (cannot %s config): %s\n", e.Op, e.Path)
	if e.Details != "" {
		b.WriteString(e.Details + "\n")
	}
	b.WriteString("Fix: " + e.Fix)
	return b.String()
}

// permissionFix suggests the platform command that grants op on path.
func permissionFix(op, path string) string {
	if runtime.GOOS == "windows" {
		return fmt.Sprintf("Right-click %s → Properties → Security → grant %s permission", path, op)
	}
	if op == "read" {
		return "Run: chmod 600 " + path
	}
	return "Run: chmod u+w " + path
}

// modeDetails reports the current file mode, or "" when unknown.
func modeDetails(path string) string {
	if runtime.GOOS == "windows" {
		return ""
	}
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("Current permissions: %04o", info.Mode().Perm())
}

// ConfigNotFoundError reports a missing config file.
type ConfigNotFoundError struct {
	Path string
	Hint string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("config file not found: %s\n\n%s", e.Path, e.Hint)
}

// InvalidConfigError reports a config that fails to parse or validate.
type InvalidConfigError struct {
	Path    string
	Message string
	Hint    string
}

func (e *InvalidConfigError) Error() string {
	parts := []string{"invalid config"}
	if e.Path != "" {
		parts[0] += ": " + e.Path
	}
	for _, s := range []string{e.Message, e.Hint} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}
