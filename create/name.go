package create

import "fmt"

// resolveName picks requested > blueprintDerived > generated, per §4.5
// phase 2. The generated form is "instance-<n>" for increasing n, tried by
// the caller's reservation loop (Manager.GenerateName) up to 100 times.
func resolveName(requested, blueprintDerived string) (fixed string, generate bool) {
	if requested != "" {
		return requested, false
	}
	if blueprintDerived != "" {
		return blueprintDerived, false
	}
	return "", true
}

func generatedCandidate(attempt int) string {
	return fmt.Sprintf("instance-%d", attempt+1)
}
