/*
Package domain contains the core domain models for the Graft dispatcher.

It defines the read-only view of a workflow graph and the records exchanged
between the dispatch pipeline stages. This package is kept pure and free of
external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - Graph / Node: A workflow as nodes keyed by identifier, each with a class
    tag and named inputs.
  - Value: The tagged union held by an input, an opaque Literal or a Link
    (producer node id, output slot) denoting a dependency edge.
  - RemoteJob: One submitted execution of a (sub)graph, identified by a
    caller-assigned id distinct from the remote's own internal id.
  - AssetRef / ImageBatch: Remote output descriptors and the decoded
    channel-last pixel representation handed back to the caller.
*/
package domain
