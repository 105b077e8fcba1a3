package shared

// Academic capabilities. Hierarchies use ':' so a role may grant "phd" and
// carve out "phd:delete".
const (
	PermGradesView   = "grades:view"
	PermGradesUpload = "grades:upload"
	PermGradesManage = "grades:manage"

	PermHandoutsView   = "handouts:view"
	PermHandoutsUpload = "handouts:upload"

	PermPhDView      = "phd:view"
	PermPhDProposals = "phd:proposals"
	PermPhDDelete    = "phd:delete"
	PermPhDDRC       = "phd:drc"
	PermPhDDRCQE     = "phd:drc:qe"
	PermPhDDRCThesis = "phd:drc:thesis"
)

// AcademicScopes lists capabilities of grade, handout and PhD workflow modules.
func AcademicScopes() []string {
	return []string{
		PermGradesView,
		PermGradesUpload,
		PermGradesManage,
		PermHandoutsView,
		PermHandoutsUpload,
		PermPhDView,
		PermPhDProposals,
		PermPhDDelete,
		PermPhDDRC,
		PermPhDDRCQE,
		PermPhDDRCThesis,
	}
}
