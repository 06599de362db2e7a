package models

// Route names the in-app destination a tapped notification opens.
type Route string

const (
	RouteMaintenanceApproval Route = "maintenance_approval"
	RouteBreakdownApproval   Route = "breakdown_approval"
	RouteAssetDetails        Route = "asset_details"
	RouteMaintenance         Route = "maintenance"
	RouteBreakdown           Route = "breakdown"
	RouteNotifications       Route = "notifications"
)

// RouteFor resolves the destination for a tapped message. An explicit
// "screen" data key wins. Otherwise approval flows are keyed on
// notification_type and the remaining flows on type.
func RouteFor(msg *RemoteMessage) Route {
	if msg == nil {
		return RouteNotifications
	}
	if s := msg.Data["screen"]; s != "" {
		return Route(s)
	}
	switch NotificationType(msg.Data["notification_type"]) {
	case NTWorkflowApproval:
		return RouteMaintenanceApproval
	case NTBreakdownApproval:
		return RouteBreakdownApproval
	}
	switch NotificationType(msg.Data["type"]) {
	case NTAssetCreated:
		return RouteAssetDetails
	case NTMaintenanceDue:
		return RouteMaintenance
	case NTBreakdownReported:
		return RouteBreakdown
	}
	return RouteNotifications
}
