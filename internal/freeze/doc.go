// Package freeze implements the nestable mutation lock that guards a bitmap
// while its memory is shared with a background goroutine.
//
// The lock is a depth counter exposed as a boolean:
//
//	depth = outstanding scoped holds + 1 if permanently frozen
//
// Scoped holds come from Acquire and are released through their Token.
// The permanent freeze is toggled with Freeze and Unfreeze, and Seal makes
// it irrevocable. Unfreeze only clears the permanent bit; it never cancels a
// scoped hold, so an object stays frozen until every background operation
// that froze it has finished.
package freeze
