// Package connection manages the binding between a signed-in user and their
// account at the connection broker.
//
// A Resolver recalls the user's connection identity from a Store or mints a
// new random one. The Initiator then asks the broker for an authorization
// URL bound to that identity. The handshake itself lives entirely at the
// broker; nothing here tracks its progress.
//
// Three Store implementations are provided: a browser cookie (the default),
// an in-process map and a Valkey keyspace. They share the same expiry
// semantics: the identifier lives for a bounded time and every successful
// connect renews it.
package connection
