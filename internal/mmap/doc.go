// Package mmap maps graph files into memory read-only.
//
//	m, err := mmap.Open("sample.kdb")
//	if err != nil { ... }
//	defer m.Close()
//
//	_ = m.Advise(mmap.AccessSequential) // the loader reads front to back
//	data := m.Bytes()
//
// Unix uses mmap(2)/madvise(2); Windows uses CreateFileMapping/MapViewOfFile
// and ignores access hints. Close is idempotent; callers must not touch
// Bytes() after Close returns.
package mmap
