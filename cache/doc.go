// Package cache provides the cache-aside building blocks used by the mediator's
// cache behaviors: a byte oriented Store, key derivation, a value codec and
// mutation driven invalidation.
//
// # Stores
//
// Two Store implementations ship with the package:
//
//   - NewMemoryStore: in-process, backed by sturdyc. Never fails on the network.
//   - NewRedisStore: distributed, backed by go-redis. Callers are expected to
//     bound every call with a timeout and treat failures as misses.
//
// Both implement PrefixRemover. Stores that do not can be wrapped with
// WithKeyTracking, which records written keys so prefixes can still be cleared.
//
// # Keys
//
// Keys follow the layout <model>::<kind>::<distinguisher>:
//
//	order::get_by_id::42
//	order::get_by_ids::<xxhash of the sorted identifiers>
//	order::query::<xxhash of filter and page>
//	order::select::<xxhash of filter>
//
// Fingerprints hash the output of the reflection KeySerializer, which renders
// maps in sorted order and values implementing encoding.TextMarshaler through
// their text form, so the same request produces the same key in every process.
//
//	keys := cache.NewKeyBuilder("order", nil)
//	key := keys.Query(filter, page)
//
// # Invalidation
//
// Invalidator.Model removes the identifier keys of a mutated record and every
// collection entry of its model. Collection invalidation is coarse: a
// fingerprint cannot be mapped back to the records it covers.
//
//	inv := cache.NewInvalidator(cache.WithKeyTracking(store))
//	err := inv.Model(ctx, keys, "42")
//
// # Values
//
// Values are encoded with msgpack through MsgpackCodec. A value that fails to
// decode is treated by the behaviors as a miss.
package cache
