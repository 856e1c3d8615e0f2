package magetasks

// TestAll runs all tests.
func TestAll() error {
	PrintH2Header("Tests")
	return Run("Go Test", "go", "test", "./...")
}

// TestCoverage runs tests with a coverage profile and prints the
// per-function summary.
func TestCoverage() error {
	PrintH2Header("Test Coverage")
	if err := Run("Go Test", "go", "test", "-coverprofile=coverage.out", "./..."); err != nil {
		return err
	}
	return Run("Coverage Report", "go", "tool", "cover", "-func=coverage.out")
}

// TestRace runs tests with the race detector. The coverage aggregator's
// parallel ingest is the main target.
func TestRace() error {
	PrintH2Header("Race Detector")
	return Run("Go Test -race", "go", "test", "-race", "./...")
}
