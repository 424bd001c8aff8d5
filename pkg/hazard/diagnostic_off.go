//go:build !hazarddiag

package hazard

const compiledDiagnostics = false
