// Package harness provides test harness infrastructure for validating the
// analyzer against fixture module trees.
package harness

// Scenario represents a single analysis scenario: a fixture module tree plus
// the expected build and tree-shake outcome.
type Scenario struct {
	// Name is the scenario directory name.
	Name string `yaml:"-"`

	// Dir is the absolute path of the scenario directory.
	Dir string `yaml:"-"`

	// Entry is the entry module, relative to the fixture root.
	Entry string `yaml:"entry"`

	// Workers lists the builder worker counts to run the scenario under.
	// Empty means sequential only.
	Workers []int `yaml:"workers,omitempty"`

	// ExpectedModules lists the module ids the graph must contain, relative
	// to the fixture root.
	ExpectedModules []string `yaml:"expected_modules"`

	// ExpectedKept lists the kept-set entries ("<module>::<symbol>") the
	// shaker must produce, module ids relative to the fixture root.
	ExpectedKept []string `yaml:"expected_kept"`

	// ExpectedBuildError, when non-empty, is a substring the build error
	// must contain. The shake phase is skipped.
	ExpectedBuildError string `yaml:"expected_build_error,omitempty"`
}
