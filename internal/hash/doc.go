// Package hash provides the CRC-32C checksum that protects snapshot
// payloads. The same polynomial is used by S3 for upload checksums, so a
// payload can be verified end to end.
//
//	sum := hash.CRC32C(payload)
package hash
