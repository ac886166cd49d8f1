package pipeline

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/andresuchdata/restock/internal/source"
)

// Lister lists the payloads under a reference prefix.
type Lister interface {
	List(ctx context.Context, ref string) ([]source.ObjectInfo, error)
}

// Orchestrator coordinates building a report for every payload found under a prefix.
type Orchestrator struct {
	lister Lister
	worker *Worker
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(lister Lister, builder Builder, cfg BatchConfig) *Orchestrator {
	return &Orchestrator{lister: lister, worker: NewWorker(builder, cfg)}
}

// Run lists the JSON payloads under prefix and builds them in key order.
func (o *Orchestrator) Run(ctx context.Context, prefix string) (*BatchResult, error) {
	parsed, err := source.ParseRef(prefix)
	if err != nil {
		return nil, err
	}

	objects, err := o.lister.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	var refs []string
	for _, obj := range objects {
		if !strings.EqualFold(path.Ext(obj.Key), ".json") {
			continue
		}
		refs = append(refs, source.Ref{Scheme: parsed.Scheme, Bucket: parsed.Bucket, Path: obj.Key}.String())
	}
	sort.Strings(refs)

	return o.worker.ProcessBatch(ctx, refs)
}
