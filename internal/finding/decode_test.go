package finding

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestUnmarshal_EachKind(t *testing.T) {
	cases := []struct {
		raw  string
		want ValidationOutput
	}{
		{`{"valid": {"supportingRules": [{"id": "R-1"}]}}`, OutputValid},
		{`{"invalid": {"contradictingRules": [{"id": "R-2", "policyVersion": "3"}]}}`, OutputInvalid},
		{`{"satisfiable": {"claimsTrueScenario": {"statements": [{"logic": "p"}]}}}`, OutputSatisfiable},
		{`{"impossible": {"contradictingRules": [{"id": "R-4"}]}}`, OutputImpossible},
		{`{"translationAmbiguous": {"options": [{"translations": [{"confidence": 0.4}]}]}}`, OutputTranslationAmbiguous},
		{`{"tooComplex": {}}`, OutputTooComplex},
		{`{"noTranslations": {}}`, OutputNoTranslations},
	}
	for _, c := range cases {
		var f Finding
		if err := json.Unmarshal([]byte(c.raw), &f); err != nil {
			t.Errorf("Unmarshal(%s): %v", c.raw, err)
			continue
		}
		if f.Output != c.want {
			t.Errorf("Unmarshal(%s).Output = %s, want %s", c.raw, f.Output, c.want)
		}
		if f.Details == nil {
			t.Errorf("Unmarshal(%s).Details = nil", c.raw)
		}
	}
}

func TestUnmarshal_InvalidDetails(t *testing.T) {
	raw := `{"invalid": {
		"translation": {"claims": [{"logic": "q", "naturalLanguage": "the claim"}], "confidence": 0.9},
		"contradictingRules": [{"id": "HR-12", "policyVersion": "2"}]
	}}`
	var f Finding
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	d, ok := f.Details.(InvalidDetails)
	if !ok {
		t.Fatalf("Details type = %T, want InvalidDetails", f.Details)
	}
	if len(d.ContradictingRules) != 1 || d.ContradictingRules[0].ID != "HR-12" {
		t.Errorf("ContradictingRules = %+v, want one rule HR-12", d.ContradictingRules)
	}
	if d.Translation == nil || d.Translation.Confidence != 0.9 {
		t.Errorf("Translation = %+v, want confidence 0.9", d.Translation)
	}
}

func TestUnmarshal_RejectsUnknownKind(t *testing.T) {
	var f Finding
	err := json.Unmarshal([]byte(`{"fabricated": {}}`), &f)
	if err == nil {
		t.Fatal("Unmarshal(unknown kind) succeeded, want error")
	}
	if !strings.Contains(err.Error(), "unknown finding kind") {
		t.Errorf("error = %q, want mention of unknown finding kind", err)
	}
}

func TestUnmarshal_RejectsMultipleTags(t *testing.T) {
	var f Finding
	if err := json.Unmarshal([]byte(`{"valid": {}, "invalid": {}}`), &f); err == nil {
		t.Fatal("Unmarshal(two tags) succeeded, want error")
	}
}

func TestUnmarshal_RejectsEmptyObject(t *testing.T) {
	var f Finding
	if err := json.Unmarshal([]byte(`{}`), &f); err == nil {
		t.Fatal("Unmarshal(empty object) succeeded, want error")
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	orig := Finding{
		Output: OutputInvalid,
		Details: InvalidDetails{
			ContradictingRules: []Rule{{ID: "R-9"}},
		},
	}
	b, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Finding
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Output != OutputInvalid {
		t.Errorf("round-trip Output = %s, want INVALID", back.Output)
	}
	d := back.Details.(InvalidDetails)
	if len(d.ContradictingRules) != 1 || d.ContradictingRules[0].ID != "R-9" {
		t.Errorf("round-trip rules = %+v", d.ContradictingRules)
	}
}

func TestMarshal_NilDetails(t *testing.T) {
	b, err := json.Marshal(Finding{Output: OutputNoTranslations})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `{"noTranslations":{}}` {
		t.Errorf("Marshal(nil details) = %s", b)
	}
}

func TestDecodeList(t *testing.T) {
	raw := `[{"invalid": {}}, {"noTranslations": {}}]`
	findings, err := DecodeList([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeList: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("DecodeList returned %d findings, want 2", len(findings))
	}
	if findings[0].Output != OutputInvalid || findings[1].Output != OutputNoTranslations {
		t.Errorf("DecodeList outputs = %s, %s", findings[0].Output, findings[1].Output)
	}
}
