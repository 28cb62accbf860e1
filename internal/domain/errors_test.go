package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKindsSurviveWrapping(t *testing.T) {
	base := errors.New("dial tcp: connection refused")
	wrapped := fmt.Errorf("find CorpusData.CorpusProc: %w", UnavailableError{Store: "mongo", Err: base})

	if !IsUnavailable(wrapped) {
		t.Fatalf("expected wrapped error to be classified as unavailable")
	}
	if IsValidation(wrapped) || IsNotFound(wrapped) {
		t.Fatalf("unavailable error misclassified: %v", wrapped)
	}
	if !errors.Is(wrapped, base) {
		t.Fatalf("cause lost through Unwrap")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	cases := []struct {
		err  ValidationError
		want string
	}{
		{ValidationError{Field: "filters", Msg: "invalid JSON"}, "filters: invalid JSON"},
		{ValidationError{Msg: "path is required"}, "path is required"},
		{ValidationError{Field: "size"}, "invalid size"},
		{ValidationError{}, "validation error"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Fatalf("Error() = %q, want %q", got, tc.want)
		}
	}
}

func TestCollectionString(t *testing.T) {
	if got := (Collection{Database: "CorpusData", Name: "CorpusProc"}).String(); got != "CorpusData.CorpusProc" {
		t.Fatalf("unexpected collection name %q", got)
	}
	if got := (Collection{Name: "dataset"}).String(); got != "dataset" {
		t.Fatalf("unexpected collection name %q", got)
	}
}

func TestValidFieldPath(t *testing.T) {
	valid := []string{"timestamp", "result.accuracy", "_id", "ppen", "a1.b_2"}
	for _, s := range valid {
		if !ValidFieldPath(s) {
			t.Fatalf("expected %q to be a valid field path", s)
		}
	}
	invalid := []string{"", "$where", "a..b", ".a", "a.", "1abc", "doc'); DROP TABLE x;--", "a b", "a.$gt"}
	for _, s := range invalid {
		if ValidFieldPath(s) {
			t.Fatalf("expected %q to be rejected", s)
		}
	}
}
