package txclient

// FHIRVersion represents a FHIR specification version.
type FHIRVersion string

// Supported FHIR versions.
const (
	// R4 is FHIR Release 4 (4.0.1)
	R4 FHIRVersion = "R4"
	// R4B is FHIR Release 4B (4.3.0)
	R4B FHIRVersion = "R4B"
	// R5 is FHIR Release 5 (5.0.0)
	R5 FHIRVersion = "R5"
)

// MIMETypeFHIRJSON is the FHIR JSON media type without version parameter.
const MIMETypeFHIRJSON = "application/fhir+json"

// String returns the version string.
func (v FHIRVersion) String() string {
	return string(v)
}

// IsValid returns true if this is a supported FHIR version.
func (v FHIRVersion) IsValid() bool {
	_, ok := versionConfigs[v]
	return ok
}

// Release returns the full release number, e.g. "4.0.1".
// It returns an empty string for unsupported versions.
func (v FHIRVersion) Release() string {
	return versionConfigs[v].release
}

// MediaType returns the FHIR JSON media type with the fhirVersion parameter
// servers use for version negotiation, e.g. "application/fhir+json; fhirVersion=4.0".
func (v FHIRVersion) MediaType() string {
	cfg, ok := versionConfigs[v]
	if !ok {
		return MIMETypeFHIRJSON
	}
	return MIMETypeFHIRJSON + "; fhirVersion=" + cfg.mimeVersion
}

// versionConfig holds version-specific configuration.
type versionConfig struct {
	release     string
	mimeVersion string // major.minor, as used in the fhirVersion MIME parameter
}

var versionConfigs = map[FHIRVersion]versionConfig{
	R4:  {release: "4.0.1", mimeVersion: "4.0"},
	R4B: {release: "4.3.0", mimeVersion: "4.3"},
	R5:  {release: "5.0.0", mimeVersion: "5.0"},
}

// ParseFHIRVersion accepts either a version name ("R4") or a release
// number ("4.0.1", "4.0") and returns the matching FHIRVersion.
func ParseFHIRVersion(s string) (FHIRVersion, bool) {
	if v := FHIRVersion(s); v.IsValid() {
		return v, true
	}
	for v, cfg := range versionConfigs {
		if s == cfg.release || s == cfg.mimeVersion {
			return v, true
		}
	}
	return "", false
}
