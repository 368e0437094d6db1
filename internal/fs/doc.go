// Package fs provides the filesystem abstraction behind file-target
// serialization, plus fault injection for tests.
//
//   - [File] and [FileSystem] abstract the os calls that are used.
//   - [LocalFS] is the production implementation (fs.Default).
//   - [FaultyFS] injects failures shaped like real ones (*os.PathError
//     carrying an errno), so error normalization can be tested.
//
// [WriteFileAtomic] writes to a temporary sibling, syncs and renames it into
// place; readers never see a partially written file.
//
// The package does not take context.Context: local file operations are not
// interruptible at the syscall level. Throttling of offloaded IO happens one
// layer up, through a rate-limited writer.
package fs
