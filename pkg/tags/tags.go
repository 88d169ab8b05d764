// Package tags encodes mention relationships as message tags.
//
// A tag is an opaque string. Tags starting with "USER:" are machine-generated
// mention tags (USER:<id>); every other tag is free-form and is passed
// through verbatim, in order. Within one message's tag set the USER:
// subspace never holds duplicates.
package tags

import "strings"

// UserPrefix marks a mention tag.
const UserPrefix = "USER:"

// EncodeUserTag returns the mention tag for userID.
func EncodeUserTag(userID string) string {
	return UserPrefix + userID
}

// DecodeUserTag returns the user id carried by tag, or ok=false when tag is
// not a mention tag.
func DecodeUserTag(tag string) (userID string, ok bool) {
	if !strings.HasPrefix(tag, UserPrefix) {
		return "", false
	}
	return tag[len(UserPrefix):], true
}

// Partition is the result of splitting a tag list.
type Partition struct {
	UserIDs []string // decoded, deduplicated, first occurrence order
	Other   []string // every non-USER: tag, original order
}

// PartitionTags splits tags into decoded mention ids and free-form tags.
func PartitionTags(list []string) Partition {
	var p Partition
	seen := make(map[string]bool)
	for _, t := range list {
		id, ok := DecodeUserTag(t)
		if !ok {
			p.Other = append(p.Other, t)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		p.UserIDs = append(p.UserIDs, id)
	}
	return p
}

// Build replaces every mention tag in existing with one tag per userIDs
// entry. Free-form tags keep their order and come first.
//
// Stale mentions never survive: a mention removed from the content is gone
// from the result even if existing still carried it.
func Build(userIDs []string, existing []string) []string {
	p := PartitionTags(existing)
	out := make([]string, 0, len(p.Other)+len(userIDs))
	out = append(out, p.Other...)

	seen := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, EncodeUserTag(id))
	}
	return out
}

// Normalize merges extra mention ids into list without dropping the mention
// tags list already carries. Used where the caller's tags are authoritative
// (the send path), as opposed to Build, which recomputes them.
func Normalize(list []string, extra ...string) []string {
	p := PartitionTags(list)
	return Build(append(p.UserIDs, extra...), p.Other)
}

// UserIDs returns the deduplicated mention ids carried by list.
func UserIDs(list []string) []string {
	return PartitionTags(list).UserIDs
}
