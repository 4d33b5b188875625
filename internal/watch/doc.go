// Package watch rebuilds the site when files under the registered watch
// targets change.
//
// Events from fsnotify are coalesced over a quiet window and delivered as a
// single sorted, de-duplicated list of root-relative paths. An optional
// gocron job triggers a full resync at a fixed interval.
package watch
