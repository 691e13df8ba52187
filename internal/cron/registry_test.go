package cron

import (
	"context"
	"testing"
)

type namedJob string

func (n namedJob) Name() string              { return string(n) }
func (n namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndRejectsDuplicates(t *testing.T) {
	registry := NewRegistry(namedJob("reservation-expiry"), nil, namedJob("payment-timeout"), namedJob("reservation-expiry"))
	names := registry.Names()
	if len(names) != 2 || names[0] != "reservation-expiry" || names[1] != "payment-timeout" {
		t.Fatalf("unexpected names %v", names)
	}
	if err := registry.Register(namedJob("payment-timeout")); err == nil {
		t.Fatalf("expected duplicate name to be rejected")
	}
	if err := registry.Register(namedJob("  ")); err == nil {
		t.Fatalf("expected blank name to be rejected")
	}
}

func TestRegistryJobsReturnsCopy(t *testing.T) {
	registry := NewRegistry(namedJob("a"), namedJob("b"))
	jobs := registry.Jobs()
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}
