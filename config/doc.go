// Package config reads kmerdb settings from KMERDB_* environment variables,
// optionally seeded from a .env file, and turns them into open options and
// a blob store.
//
//	cfg, err := config.Load()
//	bs, err := cfg.BlobStore(ctx)
//	opts, err := cfg.Options()
//	g, err := kmerdb.OpenBlob(ctx, bs, cfg.Graph, opts...)
package config
