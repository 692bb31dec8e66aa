// Package device is the registry of known sensor devices.
//
// A device is identified by its name, which is also the key of its reading
// store. Registering a device persists the entry and provisions the store;
// removing it deletes the entry and drops the store. The ingestion path
// only ever looks devices up, so a reading for an unregistered name is
// rejected rather than silently creating storage.
//
// The Registry keeps every device in memory (the fleet is small and the
// lookup sits on the hot ingestion path) and writes through to a
// Repository for persistence.
package device
