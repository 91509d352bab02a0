package helper

import (
	"strings"
	"testing"
)

type testInnerCfg struct {
	Dsn string `errorTxt:"target DSN" mandatory:"yes"`
}

type testCfg struct {
	Schema    string `errorTxt:"source schema" mandatory:"yes"`
	BatchSize int    `errorTxt:"batch size" mandatory:"yes"`
	Optional  string
	Target    testInnerCfg
	private   string
}

func TestValidateStructIsPopulated(t *testing.T) {
	cfg := testCfg{Schema: "PUB"}
	err := ValidateStructIsPopulated(&cfg)
	if err == nil {
		t.Fatal("expected error for unset mandatory fields")
	}
	if !strings.Contains(err.Error(), "batch size") || !strings.Contains(err.Error(), "target DSN") {
		t.Fatalf("unexpected error text: %v", err)
	}
	if strings.Contains(err.Error(), "source schema") {
		t.Fatalf("populated field reported as missing: %v", err)
	}
	cfg.BatchSize = 10
	cfg.Target.Dsn = "postgres://localhost/db"
	if err = ValidateStructIsPopulated(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
