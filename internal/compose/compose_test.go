package compose

import (
	"strings"
	"testing"

	"github.com/aflr-dev/aflr/internal/types"
)

func TestRenderRoundTripsPlaceholder(t *testing.T) {
	spec := types.CampaignSpec{
		EngineBinary: "/usr/bin/afl-fuzz",
		SeedDir:      "/seeds",
		SolutionDir:  "/out",
	}
	plan := types.WorkerPlan{
		TargetBinary: "/bin/target",
		TargetArgs:   []string{types.Placeholder},
		Flags:        []string{"-M", "main"},
		Env:          map[string]string{},
	}

	cmd := Build(spec, plan)
	rendered := Render(cmd)

	if !strings.Contains(rendered, types.Placeholder) {
		t.Fatalf("rendered command lost the placeholder token: %s", rendered)
	}
}

func TestRenderQuotesSpecialCharacters(t *testing.T) {
	spec := types.CampaignSpec{EngineBinary: "afl-fuzz", SeedDir: "/seeds", SolutionDir: "/out"}
	plan := types.WorkerPlan{
		TargetBinary: "/bin/target",
		TargetArgs:   []string{"arg with spaces", "quote's"},
		Env:          map[string]string{"FOO": "bar baz"},
	}

	cmd := Build(spec, plan)
	rendered := Render(cmd)

	if !strings.Contains(rendered, `'arg with spaces'`) {
		t.Fatalf("spaced arg was not quoted: %s", rendered)
	}
	if !strings.Contains(rendered, `'"'"'`) {
		t.Fatalf("embedded single quote was not escaped: %s", rendered)
	}
}

func TestRenderEnvSortedDeterministic(t *testing.T) {
	spec := types.CampaignSpec{EngineBinary: "afl-fuzz", SeedDir: "/seeds", SolutionDir: "/out"}
	plan := types.WorkerPlan{
		TargetBinary: "/bin/target",
		Env:          map[string]string{"Z_VAR": "1", "A_VAR": "2"},
	}

	a := Render(Build(spec, plan))
	b := Render(Build(spec, plan))
	if a != b {
		t.Fatal("rendering the same plan twice produced different output")
	}
	if strings.Index(a, "A_VAR") > strings.Index(a, "Z_VAR") {
		t.Fatal("environment variables were not rendered in sorted order")
	}
}

func TestRenderIncludesDashDash(t *testing.T) {
	spec := types.CampaignSpec{EngineBinary: "afl-fuzz", SeedDir: "/seeds", SolutionDir: "/out"}
	plan := types.WorkerPlan{TargetBinary: "/bin/target", TargetArgs: []string{types.Placeholder}}

	rendered := Render(Build(spec, plan))
	parts := strings.Split(rendered, " -- ")
	if len(parts) != 2 {
		t.Fatalf("expected exactly one '--' separator, got: %s", rendered)
	}
	if !strings.HasSuffix(parts[1], "@@") {
		t.Fatalf("target and args should follow '--': %s", rendered)
	}
}

func TestQuoteEmptyString(t *testing.T) {
	if quote("") != "''" {
		t.Fatalf("expected empty string to quote as '', got %q", quote(""))
	}
}
