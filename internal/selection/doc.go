// Package selection decides which video an AR content item plays at a given instant.
//
// Layers are tried in a fixed order and the first one that yields an eligible video wins:
// date rule, schedule window, rotation rule, stored default, legacy rotation, fallback.
// A video is eligible when it is active and its subscription has not ended.
// The only persistent side effect is the legacy rotation advance, which happens exactly
// once per call and only when the legacy layer produced the served video.
package selection
