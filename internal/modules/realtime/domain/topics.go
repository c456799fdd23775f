package domain

import (
	"strconv"
	"strings"
)

const (
	SystemEntity     = "system"
	DashboardEntity  = "dashboard"
	TableEntity      = "table"
	RestaurantEntity = "restaurant"

	TopicSystemConnected = SystemEntity + ".connected"
	TopicSystemPong      = SystemEntity + ".pong"
	TopicSystemError     = SystemEntity + ".error"

	ActionConnected = "connected"
	ActionPong      = "pong"
	ActionError     = "error"
	ActionSnapshot  = "snapshot"
	ActionUpdated   = "updated"
	ActionDeleted   = "deleted"
	ActionResolved  = "resolved"
)

// SnapshotTopic returns the canonical snapshot topic for the given entity.
func SnapshotTopic(entity string) string {
	return buildEntityTopic(entity, ActionSnapshot)
}

// ErrorTopic returns the canonical error topic for the given entity.
func ErrorTopic(entity string) string {
	return buildEntityTopic(entity, ActionError)
}

// CustomTopic returns the canonical topic for the given entity and action.
func CustomTopic(entity, action string) string {
	return buildEntityTopic(entity, action)
}

// DashboardTopic is the per-restaurant topic manager dashboards subscribe to.
func DashboardTopic(restaurantID string) string {
	return buildEntityTopic(DashboardEntity, restaurantID)
}

// RestaurantTopic carries every store change of one restaurant.
func RestaurantTopic(restaurantID string) string {
	return buildEntityTopic(RestaurantEntity, restaurantID)
}

// TableTopic is the customer page topic of one table.
func TableTopic(restaurantID string, tableNumber int) string {
	rid := strings.TrimSpace(restaurantID)
	if rid == "" || tableNumber <= 0 {
		return ""
	}
	return TableEntity + "." + rid + "." + strconv.Itoa(tableNumber)
}

func buildEntityTopic(entity, action string) string {
	cleanEntity := strings.TrimSpace(entity)
	cleanAction := strings.TrimSpace(action)
	if cleanEntity == "" || cleanAction == "" {
		return ""
	}
	return cleanEntity + "." + cleanAction
}
