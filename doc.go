/*
Package graft splits workflow graphs across machines: it carves out the
portion of a ComfyUI-style node graph that should run elsewhere, ships it to
a remote peer over the job-queue HTTP surface, and folds the produced images
back into the local run.

# Concept

A workflow is a flat map of nodes addressed by id, where node inputs are
either literals or links to another node's output slot. Graft treats that
map as a dependency graph. Given a trigger link, it computes the exact
ancestor closure, synthesizes a capture node so the remote run materializes
the triggered value, uploads any local assets the subgraph references, and
submits the result as an ordinary prompt on the peer. Polling the peer's
history surfaces the outputs, which are fetched and decoded into an image
batch.

The full-workflow path works the other way around: selector nodes embedded
in the graph name which peer a region belongs to. Dispatching arbitrates the
selectors for one endpoint, prunes everything the remote execution
supersedes, and leaves the rest of the graph untouched.

# Key Features

  - Exact upstream tracing: the shipped subgraph contains the trigger's
    ancestors and nothing else.
  - Cascading deletion: pruning a node removes its whole downstream cone, so
    the shipped graph never contains dangling links.
  - Explicit identity: every Client carries its own client id; queue
    operations only ever touch that client's jobs.
  - Hexagonal adapters: the remote queue and the job store are ports, so
    tests run against in-process fakes and records can live in Redis.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/graft"
		"github.com/aretw0/graft/pkg/domain"
	)

	func main() {
		client, err := graft.New("http://192.168.1.40:8188")
		if err != nil {
			log.Fatal(err)
		}

		var workflow domain.Graph // decoded from an API-format prompt file

		ctx := context.Background()
		job, err := client.DispatchSubgraph(ctx, workflow, domain.Link{Producer: "7", Slot: 0}, domain.JobModeRemote)
		if err != nil {
			log.Fatal(err)
		}

		batch, err := client.Fetch(ctx, job)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("received %d images", batch.N)
	}
*/
package graft
