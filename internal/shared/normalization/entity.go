package normalization

import "strings"

// Canonical collection names used by the document store.
const (
	CollectionRestaurants  = "restaurants"
	CollectionTables       = "tables"
	CollectionRequests     = "requests"
	CollectionServerCalls  = "serverCalls"
	CollectionBillRequests = "billRequests"
	CollectionMenuItems    = "menuItems"
	CollectionRequestTypes = "requestTypes"
	CollectionPromotions   = "promotions"
)

// collectionAliases maps the spellings seen in URLs, topics and legacy documents
// onto the canonical collection names.
var collectionAliases = map[string]string{
	"restaurant":  CollectionRestaurants,
	"restaurants": CollectionRestaurants,

	"table":  CollectionTables,
	"tables": CollectionTables,

	"request":          CollectionRequests,
	"requests":         CollectionRequests,
	"service-request":  CollectionRequests,
	"service-requests": CollectionRequests,

	"server-call":  CollectionServerCalls,
	"server-calls": CollectionServerCalls,
	"servercall":   CollectionServerCalls,
	"servercalls":  CollectionServerCalls,
	"call":         CollectionServerCalls,

	"bill":          CollectionBillRequests,
	"bills":         CollectionBillRequests,
	"bill-request":  CollectionBillRequests,
	"bill-requests": CollectionBillRequests,
	"billrequest":   CollectionBillRequests,
	"billrequests":  CollectionBillRequests,

	"menu":       CollectionMenuItems,
	"menu-item":  CollectionMenuItems,
	"menu-items": CollectionMenuItems,
	"menuitem":   CollectionMenuItems,
	"menuitems":  CollectionMenuItems,

	"request-type":  CollectionRequestTypes,
	"request-types": CollectionRequestTypes,
	"requesttype":   CollectionRequestTypes,
	"requesttypes":  CollectionRequestTypes,

	"promotion":  CollectionPromotions,
	"promotions": CollectionPromotions,
	"promo":      CollectionPromotions,
	"promos":     CollectionPromotions,
}

// NormalizeCollection converts various collection name formats to their canonical form.
//
// Example:
//
//	NormalizeCollection("server_calls") => "serverCalls"
//	NormalizeCollection("Bill") => "billRequests"
func NormalizeCollection(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	normalized := strings.ReplaceAll(trimmed, "_", "-")
	if canonical, found := collectionAliases[normalized]; found {
		return canonical
	}
	return ""
}

// IsValidCollection checks if the given name resolves to a known collection.
func IsValidCollection(raw string) bool {
	return NormalizeCollection(raw) != ""
}
