// Package config holds process-wide constants and test-mode flags shared
// across the pipeline stages.
package config

// Version is the current Veyl core version.
var Version = "0.1.0"

// SourceFileExt is the canonical source extension.
const SourceFileExt = ".vey"

// IsTestMode normalizes inference-variable names for deterministic
// snapshots in tests (see typesystem.TVar.String).
var IsTestMode = false

// StrictMode holds the project-level toggles loaded from veyl.yaml
// (text/number never coerce regardless of these flags). The analyzer does
// not read StrictMode; only cmd/veyl consults it.
type StrictMode struct {
	// RejectUnreachableArms makes cmd/veyl print a strict-mode note. The
	// analyzer reports UNREACHABLE-ARM as an error whatever its value.
	RejectUnreachableArms bool
}

// DefaultStrictMode is used when no veyl.yaml is present.
var DefaultStrictMode = StrictMode{RejectUnreachableArms: false}
