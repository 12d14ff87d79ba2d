package solution

import "testing"

func TestLookups(t *testing.T) {
	tpl, ok := Get("sql-injection-prevention")
	if !ok {
		t.Fatal("expected sql-injection-prevention template")
	}
	if tpl.Severity != "critical" || len(tpl.Steps) != 3 {
		t.Errorf("unexpected template: %+v", tpl)
	}
	if _, ok := Get("missing"); ok {
		t.Error("unknown id must not resolve")
	}

	if got := ByCategory(CategoryWeb); len(got) != 1 || got[0].ID != "web-xss-mitigation" {
		t.Errorf("ByCategory(web) = %v", got)
	}
	if got := ByCategory(CategoryNetwork); len(got) != 0 {
		t.Errorf("expected no network templates, got %d", len(got))
	}
	if got := BySeverity("high"); len(got) != 2 {
		t.Errorf("expected 2 high templates, got %d", len(got))
	}
}

func TestStepIDsAreSequential(t *testing.T) {
	for _, tpl := range All() {
		for i, s := range tpl.Steps {
			if s.ID != i+1 {
				t.Errorf("%s: step %d has id %d", tpl.ID, i, s.ID)
			}
		}
	}
}
