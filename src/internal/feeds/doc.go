// Package feeds describes the block lists the aggregator knows about.
//
// A Source is the static identity of one feed together with the two
// strategies that understand its format: a Parser turning a raw line into
// network entries and a Verifier cross-checking the parsed line count against
// the count the feed reports about itself (usually in a trailing comment).
//
// Sources live in an immutable Registry built at startup. Adding a feed means
// adding one Source to the registry table, plus a Parser or Verifier kind if
// none of the existing ones fits.
package feeds
