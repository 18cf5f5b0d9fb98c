// Package transport moves pipeline packets over UDP.
//
// The wire format is a fixed 11-byte header followed by the payload:
//
//	[0]     packet role (1 = source, 2 = repair)
//	[1:5]   sequence number, big endian
//	[5:9]   coding block index, big endian
//	[9:11]  position within the block, big endian
//
// A UDPTransport is symmetric: on the sending side it is a
// packet.Writer that marshals and transmits to each packet's stamped
// destination address; on the receiving side a read loop unmarshals
// datagrams, stamps the peer address, and dispatches by role into the
// writers mounted with RegisterWriter, typically a receiver slot's
// endpoint mounts.
package transport
