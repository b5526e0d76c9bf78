// Package tlv implements the definite-length BER-TLV codec used by card
// verifiable certificates.
//
// A TLV is a Tag, a Length and a Value. Values are either a Leaf holding raw
// content octets or a Constructed value holding an ordered list of nested
// TLVs. Everything in this package is immutable once built, so values can be
// shared between goroutines without locking.
//
// Parsing never recurses on its own. Parse returns the content of every TLV as
// a Leaf; callers that expect nested structure call ParseList (or
// TLV.Children) on that content explicitly.
package tlv
