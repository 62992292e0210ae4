package collector

import "testing"

func TestOutcomeVariantsAreExclusive(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		outcome Outcome
		success bool
		skip    bool
		failed  bool
	}{
		{"success", Success([]Item{{ID: "a"}}), true, false, false},
		{"skip", Skip(SkipUnchanged), false, true, false},
		{"error", Failure("parse failed", false), false, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.outcome.IsSuccess(); got != tc.success {
				t.Errorf("IsSuccess() = %v, want %v", got, tc.success)
			}
			if got := tc.outcome.IsSkip(); got != tc.skip {
				t.Errorf("IsSkip() = %v, want %v", got, tc.skip)
			}
			if got := tc.outcome.IsError(); got != tc.failed {
				t.Errorf("IsError() = %v, want %v", got, tc.failed)
			}
		})
	}
}

func TestFailureCarriesRetryability(t *testing.T) {
	t.Parallel()

	if !Failure("timeout", true).Retryable {
		t.Fatal("retryable failure lost its flag")
	}
	if Failure("bad credentials", false).Retryable {
		t.Fatal("non-retryable failure gained a retry flag")
	}
}

func TestSourceParamFallback(t *testing.T) {
	t.Parallel()

	s := Source{Parameters: map[string]string{"token": "abc", "empty": ""}}
	if got := s.Param("token", "def"); got != "abc" {
		t.Fatalf("Param(token) = %q", got)
	}
	if got := s.Param("empty", "def"); got != "def" {
		t.Fatalf("Param(empty) = %q, want fallback", got)
	}
	if got := s.Param("missing", "def"); got != "def" {
		t.Fatalf("Param(missing) = %q, want fallback", got)
	}
}
