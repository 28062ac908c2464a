// Package cache is the dashboard's resource cache: a map from request
// descriptor to the last known server response for it.
//
// Reads never block. Get returns whatever is cached and starts a fetch in
// the background when nothing is. Fetches for the same descriptor are
// de-duplicated: while one is in flight, further Invalidate calls join it
// instead of starting another.
//
// Settlement rules:
//
//   - success replaces Data and clears Err
//   - api.ErrUnavailable (HTTP 418) sets Err and keeps the stale Data
//   - any other error sets Err and clears Data
//
// OptimisticWrite edits Data in place until the next settlement, which
// always wins. Revalidate guarantees a fetch that started after the call,
// which is what mutations use to reconcile:
//
//	c.OptimisticWrite(items, func(v any) any { return v.(*api.ItemPage).Without(7) })
//	err := client.DeleteItem(ctx, 7)
//	c.Revalidate(items) // runs whether or not the delete succeeded
//
// Subscribers receive a copy of the entry after every settlement and every
// optimistic write. Delivery never blocks the cache; a subscriber that falls
// behind misses intermediate entries but always sees a newer one.
package cache
