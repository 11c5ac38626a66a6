package enums

// AuditSource identifies who caused a history or process-log entry.
type AuditSource string

const (
	AuditSourceSystem AuditSource = "system"
	AuditSourceAdmin  AuditSource = "admin"
	AuditSourceParent AuditSource = "parent"
	AuditSourceMixam  AuditSource = "mixam"
)

var validAuditSources = []AuditSource{
	AuditSourceSystem,
	AuditSourceAdmin,
	AuditSourceParent,
	AuditSourceMixam,
}

func (s AuditSource) String() string {
	return string(s)
}

// IsValid reports whether the value is a known AuditSource.
func (s AuditSource) IsValid() bool {
	for _, candidate := range validAuditSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// AuditSourceFor maps an actor role onto its audit source.
func AuditSourceFor(role ActorRole) AuditSource {
	switch role {
	case ActorRoleAdmin:
		return AuditSourceAdmin
	case ActorRoleParent:
		return AuditSourceParent
	default:
		return AuditSourceSystem
	}
}
