package pipeline

import "github.com/goliatone/go-repository-mediator/capability"

// Assemble builds the behavior chain for kind from the model's capabilities.
// opts must come from NewOptions so that every chain of a registration shares
// one cache store and invalidator.
//
//	get_by_id, get_by_ids  cache
//	query, select          tenant_filter, soft_delete_filter, cache
//	create                 tenant_default, tenant_authenticate, tracking, validation, change_notification
//	update, upsert         tenant_default, tenant_authenticate, tracking, validation, change_notification
//	patch, delete          change_notification
//
// Tenant behaviors require HasTenant, soft-delete filtering TracksDeleted and
// tracking TracksCreated (create) or TracksUpdated (update, upsert). The cache
// behavior is present only when caching is enabled.
//
// Patch and delete carry no tenant or validation behavior; the identifier
// already resolves the record.
func Assemble[T any](kind Kind, desc capability.Descriptor, opts Options[T]) Chain[T] {
	var chain Chain[T]

	switch kind {
	case KindGetByID, KindGetByIDs:
		chain = appendCache(chain, opts)

	case KindQuery, KindSelect:
		if desc.HasTenant {
			chain = append(chain, TenantFilter[T](desc))
		}
		if desc.TracksDeleted {
			chain = append(chain, SoftDeleteFilter[T](desc))
		}
		chain = appendCache(chain, opts)

	case KindCreate, KindUpdate, KindUpsert:
		if desc.HasTenant {
			chain = append(chain, TenantDefault[T](desc), TenantAuthenticate[T](desc))
		}
		if (kind == KindCreate && desc.TracksCreated) || (kind != KindCreate && desc.TracksUpdated) {
			chain = append(chain, Tracking[T](kind, opts.Clock))
		}
		chain = append(chain, Validation(desc, opts.Rules...), ChangeNotification(desc, opts))

	case KindPatch, KindDelete:
		chain = append(chain, ChangeNotification(desc, opts))
	}

	return chain
}

func appendCache[T any](chain Chain[T], opts Options[T]) Chain[T] {
	switch opts.Cache {
	case CacheMemory:
		return append(chain, MemoryCache(opts))
	case CacheDistributed:
		return append(chain, DistributedCache(opts))
	}
	return chain
}
