package pipeline

import "github.com/goliatone/go-repository-mediator/notify"

// Kind enumerates the request kinds the mediator routes.
type Kind uint8

const (
	KindGetByID Kind = iota + 1
	KindGetByIDs
	KindQuery
	KindSelect
	KindCreate
	KindUpdate
	KindUpsert
	KindPatch
	KindDelete
)

var kindNames = [...]string{
	KindGetByID:  "get_by_id",
	KindGetByIDs: "get_by_ids",
	KindQuery:    "query",
	KindSelect:   "select",
	KindCreate:   "create",
	KindUpdate:   "update",
	KindUpsert:   "upsert",
	KindPatch:    "patch",
	KindDelete:   "delete",
}

// Kinds lists every request kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindGetByID, KindGetByIDs, KindQuery, KindSelect, KindCreate, KindUpdate, KindUpsert, KindPatch, KindDelete}
}

// String returns the snake_case name, which is also the cache key segment.
func (k Kind) String() string {
	if k == 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

func (k Kind) IsQuery() bool {
	return k >= KindGetByID && k <= KindSelect
}

func (k Kind) IsCommand() bool {
	return k >= KindCreate && k <= KindDelete
}

// IsCollection reports kinds whose results span several records.
func (k Kind) IsCollection() bool {
	return k == KindGetByIDs || k == KindQuery || k == KindSelect
}

// Op maps a command kind to its change event operation. Queries map to "".
func (k Kind) Op() notify.Op {
	switch k {
	case KindCreate:
		return notify.OpCreate
	case KindUpdate:
		return notify.OpUpdate
	case KindUpsert:
		return notify.OpUpsert
	case KindPatch:
		return notify.OpPatch
	case KindDelete:
		return notify.OpDelete
	}
	return ""
}
