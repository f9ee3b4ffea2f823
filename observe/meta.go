package observe

// CacheMeta identifies the cache and operation a telemetry record belongs to.
type CacheMeta struct {
	Identity    string // logical cache name, e.g. "scripts"
	Operation   string // engine operation, e.g. "workspace", "sweep", "invalidate"
	DisplayName string // diagnostic label (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: cache.<operation>.<identity> or cache.<operation>
func (m CacheMeta) SpanName() string {
	if m.Identity != "" {
		return "cache." + m.Operation + "." + m.Identity
	}
	return "cache." + m.Operation
}
