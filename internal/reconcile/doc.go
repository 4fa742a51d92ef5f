// Package reconcile waits for a freshly written batch to show up in the
// history listing.
//
// History is eventually consistent with respect to writes: the listing is
// rebuilt from object store prefixes, which may lag a just-completed upload.
// Poller re-lists a few times on a fixed schedule and hands every result to
// the caller so a UI can refresh as soon as the batch appears.
package reconcile
