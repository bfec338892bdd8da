package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(t *testing.T) *MutationParser {
	t.Helper()
	p, err := NewMutationParser(nil)
	require.NoError(t, err)
	return p
}

func TestParseFencedFunction(t *testing.T) {
	p := newTestParser(t)

	raw := "MODIFICATION: add a clamp helper\n" +
		"REASON: avoids repeated min/max chains\n" +
		"CODE:\n```go\nfunc clamp(v, lo, hi int) int {\n" +
		"\tif v < lo {\n\t\treturn lo\n\t}\n" +
		"\tif v > hi {\n\t\treturn hi\n\t}\n" +
		"\treturn v\n}\n```\n"

	candidate, err := p.Parse(raw, "target.go")
	require.NoError(t, err)
	assert.True(t, candidate.Safe)
	assert.Equal(t, CategoryFunction, candidate.Category)
	assert.Equal(t, "clamp", candidate.Symbol)
	assert.Equal(t, "add a clamp helper", candidate.Modification)
	assert.Equal(t, "avoids repeated min/max chains", candidate.Reason)
	assert.Contains(t, candidate.Code, "func clamp")
}

func TestParseProseOnly(t *testing.T) {
	p := newTestParser(t)

	raw := "I think the file is already quite good. One could consider " +
		"adding more documentation, but no concrete change comes to mind."

	candidate, err := p.Parse(raw, "target.go")
	assert.Nil(t, candidate)
	assert.ErrorIs(t, err, ErrNoCodeFound)
}

func TestParseUnsafeOperation(t *testing.T) {
	p := newTestParser(t)

	// A benign-looking helper around a forbidden call must still be
	// rejected.
	raw := "MODIFICATION: add cleanup\nCODE:\n```go\n" +
		"func cleanup() {\n\tos.system(\"rm -rf /\")\n}\n```\n"

	candidate, err := p.Parse(raw, "target.go")
	assert.Nil(t, candidate)
	assert.ErrorIs(t, err, ErrUnsafeOperation)
}

func TestParseDenylistCoverage(t *testing.T) {
	p := newTestParser(t)

	snippets := map[string]string{
		"exec":        "func run() { exec.Command(\"ls\").Run() }",
		"syscall":     "func kill(pid int) { syscall.Kill(pid, 9) }",
		"remove":      "func wipe() { os.RemoveAll(\"/tmp/x\") }",
		"dial":        "func open() { net.Dial(\"tcp\", \"example.com:80\") }",
		"http":        "func fetch() { http.Get(\"http://example.com\") }",
		"unsafe":      "func peek(p *int) uintptr { return uintptr(unsafe.Pointer(p)) }",
		"self-tamper": "var denylist = []string{}",
	}

	for name, code := range snippets {
		t.Run(name, func(t *testing.T) {
			raw := "CODE:\n```go\n" + code + "\n```"
			_, err := p.Parse(raw, "target.go")
			assert.ErrorIs(t, err, ErrUnsafeOperation)
		})
	}
}

func TestParseSyntaxInvalid(t *testing.T) {
	p := newTestParser(t)

	raw := "CODE:\n```go\nfunc broken( {\n\treturn\n```"

	_, err := p.Parse(raw, "target.go")
	assert.ErrorIs(t, err, ErrSyntaxInvalid)
}

func TestParseIsDeterministic(t *testing.T) {
	p := newTestParser(t)

	raw := "MODIFICATION: add type\nCODE:\n```go\ntype Pair struct {\n\tA, B int\n}\n```"

	first, err := p.Parse(raw, "target.go")
	require.NoError(t, err)
	second, err := p.Parse(raw, "target.go")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseClassification(t *testing.T) {
	p := newTestParser(t)

	cases := []struct {
		name     string
		code     string
		category MutationCategory
		symbol   string
	}{
		{"import block", "import \"strings\"", CategoryImport, ""},
		{"function", "func double(x int) int { return x * 2 }", CategoryFunction, "double"},
		{"type", "type Counter struct {\n\tN int\n}", CategoryType, "Counter"},
		{"statements", "x := 1\nx++\n_ = x", CategoryOther, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := "CODE:\n```go\n" + tc.code + "\n```"
			candidate, err := p.Parse(raw, "target.go")
			require.NoError(t, err)
			assert.Equal(t, tc.category, candidate.Category)
			assert.Equal(t, tc.symbol, candidate.Symbol)
		})
	}
}

func TestParseUnfencedCodeSection(t *testing.T) {
	p := newTestParser(t)

	raw := "MODIFICATION: add helper\nREASON: reuse\nCODE:\nfunc triple(x int) int { return x * 3 }\n\nThat is all."

	candidate, err := p.Parse(raw, "target.go")
	require.NoError(t, err)
	assert.Equal(t, CategoryFunction, candidate.Category)
	assert.Equal(t, "triple", candidate.Symbol)
}

func TestNewMutationParserRejectsBadPattern(t *testing.T) {
	_, err := NewMutationParser([]string{"[unclosed"})
	assert.Error(t, err)
}
