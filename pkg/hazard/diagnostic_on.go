//go:build hazarddiag

package hazard

// built with -tags hazarddiag: diagnostics are always on regardless of config
const compiledDiagnostics = true
