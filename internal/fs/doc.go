// Package fs abstracts the filesystem calls made when writing graph files,
// so writer failures can be injected in tests.
//
//   - [LocalFS]: the os package
//   - [FaultyFS]: wraps another FileSystem and fails writes, syncs or renames on demand
//
// Production code uses fs.Default:
//
//	f, err := fs.Default.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
//
// Reading is done through blobstore, which owns mmap and remote access.
package fs
