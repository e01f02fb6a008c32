package redisx

const (
	// Catalog response cache: catalog:{source}:{identifier} -> JSON record
	KeyCatalogRecord = "bookbin:catalog:%s:%s"

	// Single active enrichment run: lock:{name} -> owner token
	KeyLock = "bookbin:lock:%s"
)
