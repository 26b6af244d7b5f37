// Package filecache stores fragment payloads as files.
//
// Each namespace owns a directory, <Root>/<slug(namespace)>, and each
// condition set maps to one file named by its derived key:
//
//	<Root>/<namespace-dir>/<key>.html
//
// Every step of that derivation can be overridden through Hooks. Writes go
// to a temporary file in the target directory and are renamed into place,
// so readers never observe a partial payload. Clear removes everything below
// the namespace directory without following symlinks.
//
// With Compression set, payloads are stored zstd-compressed under a
// ".html.zst" extension.
package filecache
