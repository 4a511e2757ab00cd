// Package cdns implements the C-DNS format (RFC 8618): a compact,
// block-structured, deduplicating binary encoding for DNS traffic
// captures.
//
// C-DNS stores DNS queries and responses as CBOR (RFC 8949), interning
// repeated values (IP addresses, names, RDATA, query signatures) into
// per-block tables so that a busy resolver's capture stays small even
// though every query/response pair references those tables by index
// rather than repeating them.
//
// # Core Features
//
//   - Block-structured capture: each block carries its own intern
//     tables and statistics, bounded by a configurable item count
//   - Content-addressed deduplication of addresses, names/RDATA,
//     class/type pairs and query signatures
//   - Optional file-level compression (gzip or xz) via package stream
//   - Output rotation: close the current file and continue into a new
//     one without losing any buffered data
//   - Streaming reader that never materializes the whole file in memory
//
// # Basic Usage
//
// Writing a capture:
//
//	import (
//		cdns "github.com/CZ-NIC/go-cdns"
//		"github.com/CZ-NIC/go-cdns/block"
//		"github.com/CZ-NIC/go-cdns/stream"
//		"github.com/CZ-NIC/go-cdns/timestamp"
//	)
//
//	exp, err := cdns.NewExporter(stream.Gzip, stream.FileTarget("capture.cdns"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer exp.Close()
//
//	_, err = exp.BufferQR(block.QueryResponse{
//		Time: timestamp.New(uint64(time.Now().Unix()), 0),
//		// ...
//	})
//
// Reading a capture back:
//
//	r, err := cdns.NewReader(stream.Gzip, stream.FileReadTarget("capture.cdns.gz"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	for {
//		blk, eof, err := r.ReadBlock()
//		if err != nil {
//			log.Fatal(err)
//		}
//		if eof {
//			break
//		}
//		for {
//			qr, end := blk.ReadGenericQR()
//			if end {
//				break
//			}
//			// ... use qr
//		}
//	}
//
// # Package Structure
//
// This package provides convenient top-level wrappers around package
// exporter and package reader, using default block and storage
// parameters. For fine-grained control over block sizing, storage
// hints, or collection metadata, construct a block.FilePreamble
// directly and use the exporter/reader packages.
package cdns

import (
	"github.com/CZ-NIC/go-cdns/block"
	"github.com/CZ-NIC/go-cdns/exporter"
	"github.com/CZ-NIC/go-cdns/reader"
	"github.com/CZ-NIC/go-cdns/stream"
)

// NewExporter creates a C-DNS exporter with default block and storage
// parameters (see block.DefaultStorageParameters) writing to target using
// the given Kind (Plain, Gzip or Xz).
//
// This is the recommended factory function for most use cases. Use
// exporter.New directly when a non-default FilePreamble is required, e.g.
// custom StorageHints or CollectionParameters.
func NewExporter(kind stream.Kind, target stream.Target, opts ...exporter.Option) (*exporter.Exporter, error) {
	return exporter.New(kind, target, block.NewFilePreamble(), opts...)
}

// NewReader opens a C-DNS file for reading, validating its format version
// and parsing its file preamble.
func NewReader(kind stream.Kind, target stream.ReadTarget) (*reader.Reader, error) {
	return reader.New(kind, target)
}
