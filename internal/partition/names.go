package partition

import "fmt"

// Partition categories. Every deployed gateway version owns exactly one
// partition per category; the version suffix is what makes old partitions
// eligible for cleanup after a rollover.
const (
	CategoryStatic  = "static"
	CategoryDynamic = "dynamic"
	CategoryAPI     = "api"
)

// Names derives the partition names for one app version following the
// <app>-<category>-v<semver> convention.
type Names struct {
	App     string
	Version string
}

// Static returns the static partition name.
func (n Names) Static() string { return n.name(CategoryStatic) }

// Dynamic returns the dynamic partition name.
func (n Names) Dynamic() string { return n.name(CategoryDynamic) }

// API returns the api partition name.
func (n Names) API() string { return n.name(CategoryAPI) }

// All returns every partition name of this version. This is the allow-list
// passed to CleanupStale on activation.
func (n Names) All() []string {
	return []string{n.Static(), n.Dynamic(), n.API()}
}

func (n Names) name(category string) string {
	return fmt.Sprintf("%s-%s-v%s", n.App, category, n.Version)
}
