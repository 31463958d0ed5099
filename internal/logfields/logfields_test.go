package logfields

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"RunID", KeyRunID, "r1", RunID("r1")},
		{"Stage", KeyStage, "reduce", Stage("reduce")},
		{"Path", KeyPath, "_posts/a.md", Path("_posts/a.md")},
		{"Permalink", KeyPermalink, "/2020/09/01/a", Permalink("/2020/09/01/a")},
		{"Layout", KeyLayout, "post", Layout("post")},
		{"Code", KeyCode, "DateAmbiguous", Code("DateAmbiguous")},
		{"Severity", KeySeverity, "warning", Severity("warning")},
		{"Outcome", KeyOutcome, "success", Outcome("success")},
		{"Error", KeyError, "boom", Error(errors.New("boom"))},
		{"NilError", KeyError, "", Error(nil)},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

func TestNumericHelpers(t *testing.T) {
	if a := Workers(4); a.Key != KeyWorkers || a.Value.Int64() != 4 {
		t.Fatalf("unexpected workers attr %v", a)
	}
	if a := Documents(12); a.Key != KeyDocuments || a.Value.Int64() != 12 {
		t.Fatalf("unexpected documents attr %v", a)
	}
	if a := Duration(1500 * time.Microsecond); a.Key != KeyDurationMS || a.Value.Float64() != 1.5 {
		t.Fatalf("unexpected duration attr %v", a)
	}
}
