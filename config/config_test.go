package config

import "testing"

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsBothPassesDisabled(t *testing.T) {
	c := Default()
	c.RunGenotyping = false
	c.RunPhasing = false
	if err := c.Validate(); err == nil {
		t.Errorf("expected error when both run_genotyping and run_phasing are false")
	}
}

func TestValidateRejectsNegativeRecombrate(t *testing.T) {
	c := Default()
	c.Recombrate = -1
	if err := c.Validate(); err == nil {
		t.Errorf("expected error for negative recombrate")
	}
}

func TestValidateRejectsNonPositiveEffectiveN(t *testing.T) {
	c := Default()
	c.EffectiveN = 0
	if err := c.Validate(); err == nil {
		t.Errorf("expected error for non-positive effective_n")
	}
}

func TestValidateRejectsDuplicateOnlyPaths(t *testing.T) {
	c := Default()
	c.OnlyPaths = []int{0, 1, 1}
	if err := c.Validate(); err == nil {
		t.Errorf("expected error for duplicate only_paths entries")
	}
}
