package queryplan

import "testing"

func TestBuildQueryTextSortsUniqueTerms(t *testing.T) {
	in := Input{
		Brand:             "Apple",
		Model:             "iPhone 13",
		VariantAttributes: map[string]string{"color": "Blue", "storage": "iPhone 13"},
	}
	plan := Build(in, nil)
	want := "Apple Blue iPhone 13"
	if plan.Q != want {
		t.Fatalf("Q = %q, want %q", plan.Q, want)
	}
}

func TestBuildFallsBackToIdentifier(t *testing.T) {
	in := Input{Identifier: "0194252714674"}
	plan := Build(in, nil)
	if plan.Q != "0194252714674" {
		t.Fatalf("Q = %q, want identifier", plan.Q)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	in := Input{Brand: "Apple", Model: "iPhone 13"}
	a := Build(in, nil)
	b := Build(in, nil)
	if a.Q != b.Q {
		t.Fatalf("Build is not deterministic: %q != %q", a.Q, b.Q)
	}
}

func TestMissingCategoryMappingRecordsWarning(t *testing.T) {
	resolver := &CategoryResolver{bySubtype: map[string]string{}}
	in := Input{Brand: "Apple", Model: "iPhone 13", Subtype: "electronics_smartphone", Marketplace: "ebay"}
	plan := Build(in, resolver)
	if plan.CategoryID != "" {
		t.Fatalf("expected empty category id, got %q", plan.CategoryID)
	}
	if len(plan.Telemetry.Warnings) != 1 {
		t.Fatalf("expected one warning, got %d", len(plan.Telemetry.Warnings))
	}
}

func TestCategoryResolverFound(t *testing.T) {
	resolver := &CategoryResolver{bySubtype: map[string]string{"electronics_smartphone": "9355"}}
	in := Input{Brand: "Apple", Model: "iPhone 13", Subtype: "Electronics_Smartphone", Marketplace: "ebay"}
	plan := Build(in, resolver)
	if plan.CategoryID != "9355" {
		t.Fatalf("CategoryID = %q, want 9355", plan.CategoryID)
	}
}
