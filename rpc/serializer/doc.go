// Package serializer provides the wire codecs of the DAP server. It implements
// the marshaller and un-marshaller interfaces declared in lib/dap for the two
// data formats a response can be encoded in.
//
// Key Components:
//
//   - ICodec: Bundles a wire format. It creates marshallers and un-marshallers
//     and names the byte order written into the X-DAP-Byte-Order header.
//
//   - xdrMarshallerImpl: The DAP2 format (XDR, RFC 4506). Values are big endian
//     and 4 byte aligned, 8 and 16 bit values are widened to 4 bytes. Strings
//     and opaques carry a 4 byte length and are zero padded. Vectors start with
//     their element count followed by an XDR array that repeats the count.
//
//   - streamMarshallerImpl: The DAP4 format. Scalars use their natural width
//     in the configured wire order, strings, opaques and varying vectors are
//     prefixed with a varint length (7 bits per byte, 0x80 continuation, at
//     most 10 bytes). A MD5 digest runs over the written bytes.
//
//   - Policy: The byte order and float layout decisions of a codec. It is
//     resolved once per codec so nothing is re-derived per value.
//
// Checksums:
//
//	The DAP4 digest is used in brackets. ResetChecksum starts a fresh digest,
//	every following write feeds it. GetChecksum (hex) or PutChecksum (16 raw
//	bytes) finalize it. After that writes fail until the next ResetChecksum.
//	Writes before the first ResetChecksum are not checksummed.
//
// Performance:
//
//	Numeric vectors are copied straight from memory when the wire order
//	equals the host order. Otherwise elements are converted into a pooled
//	scratch buffer and written in one call.
//
// Thread Safety:
//
//	Codecs are stateless and can be shared. Marshallers and un-marshallers
//	keep per stream state and must only be used by one goroutine.
//
// Usage:
//
//	codec, err := serializer.NewCodec(serializer.CodecDAP4, binary.LittleEndian, 0)
//	m := codec.NewMarshaller(w)
//	err = dataset.Serialize(m)
package serializer
