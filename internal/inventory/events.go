package inventory

import "time"

// CatalogAction enumerates catalog mutations.
type CatalogAction string

const (
	CatalogCreated CatalogAction = "created"
	CatalogUpdated CatalogAction = "updated"
	CatalogRenamed CatalogAction = "renamed"
	CatalogRemoved CatalogAction = "removed"
)

// CatalogChangedEvent describes a committed product upsert or removal.
type CatalogChangedEvent struct {
	Action   CatalogAction
	Product  Product
	Previous string
	At       time.Time
}
