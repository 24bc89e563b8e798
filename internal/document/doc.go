// Package document stores the rendered page a view flow replaces.
//
// A Document lives at a single key in a gocloud.dev/blob bucket. Replace
// writes the complete markup in one object write, so readers see either the
// previous page or the new one, never a mix. Any bucket URL supported by
// gocloud works: mem://, file:///path, gs://bucket, s3://bucket.
package document
