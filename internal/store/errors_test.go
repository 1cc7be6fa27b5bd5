package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pq.Error{Code: "23505"}
	if !IsUniqueViolation(unique) {
		t.Error("unique violation not detected")
	}
	if !IsUniqueViolation(fmt.Errorf("inserting agreement: %w", unique)) {
		t.Error("wrapped unique violation not detected")
	}

	if IsUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Error("foreign key violation misdetected as unique")
	}
	if IsUniqueViolation(errors.New("boom")) {
		t.Error("plain error misdetected")
	}
	if IsUniqueViolation(nil) {
		t.Error("nil misdetected")
	}
}
