package magetasks

import "fmt"

// QualityCheck runs lint, tests and the build in that order. Lint
// findings are reported but do not stop the run.
func QualityCheck() error {
	PrintH1Header("cibot Quality Checks")

	if err := LintAll(); err != nil {
		PrintWarning(fmt.Sprintf("Linting issues found: %v", err))
	}
	if err := TestRace(); err != nil {
		return fmt.Errorf("tests failed: %w", err)
	}
	if err := BuildAll(); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	PrintSuccess("Quality checks complete")
	return nil
}
