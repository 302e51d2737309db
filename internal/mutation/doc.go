// Package mutation runs writes against the API and keeps the query cache
// consistent with them.
//
// Each write is an Operation variant with its own validation and a static
// set of affected keys. Nothing is patched in place: after a successful
// write the coordinator invalidates the affected prefixes and subscribed
// views refetch. Validation failures and duplicates of an in-flight
// operation never reach the network.
package mutation
