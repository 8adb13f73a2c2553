package services

// ObjectiveCatalogLoadedEvent is published once a catalog fetch succeeds.
type ObjectiveCatalogLoadedEvent struct {
	Count int
}

type ObjectiveCatalogFailedEvent struct {
	Err error
}
