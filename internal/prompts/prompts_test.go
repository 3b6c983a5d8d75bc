package prompts

import (
	"strings"
	"testing"

	"github.com/voltread/voltread/internal/legend"
)

func TestSystem(t *testing.T) {
	sys := System()
	if !strings.Contains(sys, "legend_update") || !strings.Contains(sys, "halt_signal") {
		t.Error("system prompt should describe both response shapes")
	}
}

func TestBatch(t *testing.T) {
	current := legend.Legend{
		IssuingCompany:    "Elektro Nord",
		DistributionBoard: "UV-2.1",
		Circuits: []legend.Circuit{
			{Tag: "10Q1", Rating: "4x10A/30mA", Description: "Sockets"},
		},
	}

	prompt, err := Batch("0003-0005", 3, 5, 12, current)
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}

	for _, want := range []string{"0003-0005", "pages 3 to 5", "12-page", "10Q1", "Elektro Nord"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
