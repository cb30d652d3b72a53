// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

package validation

import "testing"

type sampleRequest struct {
	Name   string `validate:"required"`
	Weight int    `validate:"min=0,max=100"`
	Kind   string `validate:"omitempty,oneof=all allowlist prefix percentage"`
}

func TestValidateStruct_Valid(t *testing.T) {
	req := sampleRequest{Name: "test", Weight: 50, Kind: "all"}
	if err := ValidateStruct(&req); err != nil {
		t.Errorf("Expected valid struct, got %v", err)
	}
}

func TestValidateStruct_MissingRequired(t *testing.T) {
	req := sampleRequest{Weight: 50}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("Expected validation error for missing name")
	}
	if len(err.Errors()) != 1 {
		t.Fatalf("Expected 1 field error, got %d", len(err.Errors()))
	}
	fe := err.Errors()[0]
	if fe.Field() != "Name" || fe.Tag() != "required" {
		t.Errorf("Unexpected field error: field=%s tag=%s", fe.Field(), fe.Tag())
	}
}

func TestValidateStruct_MultipleFailures(t *testing.T) {
	req := sampleRequest{Weight: 150, Kind: "invalid"}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("Expected validation errors")
	}
	if len(err.Errors()) != 3 {
		t.Errorf("Expected 3 field errors, got %d: %v", len(err.Errors()), err)
	}
}
