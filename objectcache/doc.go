// Package objectcache stores fragment payloads in a kvstore.Store.
//
// Every fragment namespace maps to a store group and every condition set to
// one key derived by a cache.Keyer. Entries carry a TTL taken from the
// "expires" condition (seconds) when present, otherwise from the Policy.
//
// Clearing a namespace relies on kvstore.GroupDeleter. Stores without it
// cannot enumerate a group, so Clear is logged and skipped; entries then
// age out through their TTL.
package objectcache
