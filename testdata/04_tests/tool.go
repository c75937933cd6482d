package testsonly

// Real is declared in a regular source file.
type Real struct{}

// Do runs the tool.
func (Real) Do() {}
