// Package artifact fetches the files a circuit run needs: the input document,
// the compiled program and the proving and verification keys.
//
// Stores are addressed by circuit.Locations. A FileStore resolves locations
// under a root directory, an HTTPStore under a base URL, and Cached keeps the
// large immutable artifacts (program and keys) in an in-memory bigcache so
// repeated runs do not re-read them.
package artifact
