package domain_test

import (
	"strings"
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestNewOrderNumber_Format(t *testing.T) {
	number := domain.NewOrderNumber()

	if !strings.HasPrefix(number, "SO-") {
		t.Fatalf("expected SO- prefix, got %s", number)
	}
	if len(number) != len("SO-")+12 {
		t.Fatalf("unexpected number length: %s", number)
	}
	if number != strings.ToUpper(number) {
		t.Fatalf("expected uppercase number, got %s", number)
	}
}

func TestNewOrderNumber_NoTrivialRepeats(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		n := domain.NewOrderNumber()
		if _, ok := seen[n]; ok {
			t.Fatalf("generator produced duplicate in 1000 draws: %s", n)
		}
		seen[n] = struct{}{}
	}
}
