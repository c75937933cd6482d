package testsonly

import "testing"

// Helper exists only in test builds.
type Helper struct{}

// Assist helps a test.
func (Helper) Assist() {}

// Check verifies Real.
func (Real) Check() {}

func TestReal(t *testing.T) {
	Real{}.Do()
	Real{}.Check()
	Helper{}.Assist()
}
