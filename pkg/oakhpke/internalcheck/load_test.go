package internalcheck

import (
	"testing"

	"golang.org/x/tools/go/packages"
)

// checkedPackages are the packages that handle key material.
var checkedPackages = []string{
	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke",
	"github.com/generativecomputing/oakhpke-go/pkg/oakhpke/endorse",
}

func loadChecked(t *testing.T, mode packages.LoadMode) []*packages.Package {
	t.Helper()
	pkgs, err := packages.Load(&packages.Config{Mode: mode}, checkedPackages...)
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		t.Fatalf("packages failed to load")
	}
	return pkgs
}
