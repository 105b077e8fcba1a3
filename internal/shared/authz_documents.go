package shared

// Document signing and conference application capabilities.
const (
	PermDocumentsView = "documents:view"
	PermDocumentsSign = "documents:sign"

	PermConferenceApply   = "conference:apply"
	PermConferenceReview  = "conference:review"
	PermConferenceApprove = "conference:approve"
)

// DocumentScopes lists capabilities of the document and conference modules.
func DocumentScopes() []string {
	return []string{
		PermDocumentsView,
		PermDocumentsSign,
		PermConferenceApply,
		PermConferenceReview,
		PermConferenceApprove,
	}
}
