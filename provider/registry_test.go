package provider

import (
	"context"
	"testing"
)

type fakeProvider struct{ name string }

func (f *fakeProvider) Name() string                       { return f.name }
func (f *fakeProvider) IsAvailable(_ context.Context) bool { return true }

func TestRegistry_CreateUnknown(t *testing.T) {
	r := NewRegistry[Provider]()
	if _, err := r.Create("nope", nil); err == nil {
		t.Error("expected error for unregistered factory")
	}
}

func TestRegistry_RegisterAndCreate(t *testing.T) {
	r := NewRegistry[Provider]()
	r.RegisterFactory("fake", func(cfg map[string]any) (Provider, error) {
		return &fakeProvider{name: "fake"}, nil
	})

	if !r.Has("fake") {
		t.Error("Has should report registered factory")
	}

	p, err := r.Create("fake", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if p.Name() != "fake" {
		t.Errorf("Name() = %q, want %q", p.Name(), "fake")
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry[Provider]()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		n := name
		r.RegisterFactory(n, func(cfg map[string]any) (Provider, error) {
			return &fakeProvider{name: n}, nil
		})
	}
	got := r.List()
	want := []string{"alpha", "mid", "zeta"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List() = %v, want %v", got, want)
		}
	}
}
