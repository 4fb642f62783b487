// Package storage keeps a history of circuitsim invocations.
//
// Each run is stored under {data}/runs/{id}/ as metadata.json plus an
// outcomes.csv with one row per simulator invocation. IDs are random UUIDs
// and may be abbreviated to any unique prefix.
package storage
