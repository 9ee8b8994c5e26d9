// Package template implements the Template Registry and scope resolution
// of §4.8.
//
// Templates are typed IR fragments addressed by a dotted label path (e.g.
// "scene.block.actor") and an optional scope selector. FindTemplate ranks
// matches by scope specificity — a selector naming the cursor's immediate
// parent beats one naming only an ancestor scene, which beats a selector-
// free global template — mirroring the cached, mutex-protected loader
// idiom used elsewhere in this codebase for indexed, read-mostly content.
package template
