package shared

// Procurement, inventory and patent capabilities declared for RBAC.
const (
	PermProcurementView    = "procurement:view"
	PermProcurementRequest = "procurement:request"
	PermProcurementApprove = "procurement:approve"

	PermInventoryView   = "inventory:view"
	PermInventoryManage = "inventory:manage"

	PermPatentsView   = "patents:view"
	PermPatentsSubmit = "patents:submit"
	PermPatentsReview = "patents:review"
)

// OperationsScopes lists capabilities of the administrative operations modules.
func OperationsScopes() []string {
	return []string{
		PermProcurementView,
		PermProcurementRequest,
		PermProcurementApprove,
		PermInventoryView,
		PermInventoryManage,
		PermPatentsView,
		PermPatentsSubmit,
		PermPatentsReview,
	}
}
