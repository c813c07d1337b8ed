/*
Package ports defines the driven ports (interfaces) for the Graft dispatcher.

These interfaces decouple the core logic from external implementations,
allowing the dispatch pipeline to work with various remote transports, host
graph representations, and job record backends.

# Key Interfaces

  - NodeResolver: Lazily resolves nodes by id when the host does not
    pre-materialize the full graph.
  - RemoteQueue: The job-queue surface of a remote peer (upload, submit,
    await, fetch, cancel).
  - JobStore: Responsible for persisting and loading dispatched job records.
*/
package ports
