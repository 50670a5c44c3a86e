package cache

import (
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// Key segments for the cacheable request kinds.
const (
	SegmentGetByID  = "get_by_id"
	SegmentGetByIDs = "get_by_ids"
	SegmentQuery    = "query"
	SegmentSelect   = "select"
)

// CollectionSegments are the kinds whose entries a mutation can affect
// without naming their identifiers.
var CollectionSegments = []string{SegmentGetByIDs, SegmentQuery, SegmentSelect}

// KeyBuilder derives cache keys of the form <model>::<kind>::<distinguisher>
// for one model.
type KeyBuilder struct {
	model      string
	serializer KeySerializer
}

// NewKeyBuilder creates a builder for model. A nil serializer selects the default one.
func NewKeyBuilder(model string, serializer KeySerializer) KeyBuilder {
	if serializer == nil {
		serializer = NewDefaultKeySerializer()
	}
	return KeyBuilder{model: model, serializer: serializer}
}

// Model returns the namespace the builder prefixes keys with.
func (b KeyBuilder) Model() string {
	return b.model
}

// Key joins the model, kind and distinguisher.
func (b KeyBuilder) Key(kind, distinguisher string) string {
	return b.Prefix(kind) + distinguisher
}

// Prefix returns the prefix shared by every key of kind.
func (b KeyBuilder) Prefix(kind string) string {
	return b.model + KeySeparator + kind + KeySeparator
}

// Fingerprint hashes the serialized arguments with xxhash.
func (b KeyBuilder) Fingerprint(kind string, args ...any) string {
	sum := xxhash.Sum64String(b.serializer.SerializeKey(kind, args...))
	return strconv.FormatUint(sum, 16)
}

// ByID is the key of a single identifier lookup.
func (b KeyBuilder) ByID(id string) string {
	return b.Key(SegmentGetByID, id)
}

// ByIDs is the key of an identifier-set lookup. Identifier order does not
// change the key.
func (b KeyBuilder) ByIDs(ids []string) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return b.Key(SegmentGetByIDs, b.Fingerprint(SegmentGetByIDs, sorted))
}

// Query is the key of a paged query.
func (b KeyBuilder) Query(filter, page any) string {
	return b.Key(SegmentQuery, b.Fingerprint(SegmentQuery, filter, page))
}

// Select is the key of an unpaged query.
func (b KeyBuilder) Select(filter any) string {
	return b.Key(SegmentSelect, b.Fingerprint(SegmentSelect, filter))
}

// CollectionPrefixes lists the prefixes a mutation must clear.
func (b KeyBuilder) CollectionPrefixes() []string {
	out := make([]string, len(CollectionSegments))
	for i, segment := range CollectionSegments {
		out[i] = b.Prefix(segment)
	}
	return out
}
