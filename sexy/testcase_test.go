package sexy

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func TestExtractTestCases_BasicTest(t *testing.T) {
	markdown := `# Binary expressions

## Test: +
` + "```past" + `
(binary "+" 1 2)
` + "```" + `
` + "```ast" + `
(binary "+" 1 2)
` + "```" + `

## Test: -
` + "```past" + `
(binary "-" 1 2)
` + "```" + `
` + "```ast" + `
(binary "-" 1 2)
` + "```"

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 2)

	tc1 := testCases[0]
	be.Equal(t, tc1.Name, "+")
	be.Equal(t, tc1.Input, `(binary "+" 1 2)`)
	be.Equal(t, tc1.InputType, InputTypePAST)
	be.Equal(t, tc1.ParsedSexy.String(), `(binary "+" 1 2)`)
	be.Equal(t, len(tc1.Assertions), 1)
	be.Equal(t, tc1.Assertions[0].Type, AssertionTypeAST)
	be.Equal(t, tc1.Assertions[0].Content, `(binary "+" 1 2)`)
	be.Equal(t, tc1.Assertions[0].ParsedSexy.String(), `(binary "+" 1 2)`)

	tc2 := testCases[1]
	be.Equal(t, tc2.Name, "-")
	be.Equal(t, tc2.Input, `(binary "-" 1 2)`)
	be.Equal(t, tc2.Assertions[0].ParsedSexy.String(), `(binary "-" 1 2)`)
}

func TestExtractTestCases_DifferentAssertionTypes(t *testing.T) {
	markdown := `## Test: different assertions
` + "```past" + `
(program "p" (compound (print 42)))
` + "```" + `
` + "```diagnostics" + `
` + "```" + `
` + "```symtab" + `
p    program
` + "```" + `
` + "```asm" + `
li t0, 42
` + "```"

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)

	tc := testCases[0]
	be.Equal(t, len(tc.Assertions), 3)

	be.Equal(t, tc.Assertions[0].Type, AssertionTypeDiagnostics)
	be.Equal(t, tc.Assertions[0].Content, "")
	be.Equal(t, tc.Assertions[1].Type, AssertionTypeSymtab)
	be.Equal(t, tc.Assertions[1].Content, "p    program")
	be.Equal(t, tc.Assertions[2].Type, AssertionTypeAsm)
	be.Equal(t, tc.Assertions[2].Content, "li t0, 42")

	// Only ast assertions are parsed as Sexy.
	for _, assertion := range tc.Assertions {
		be.True(t, assertion.ParsedSexy == nil)
	}
}

func TestExtractTestCases_SourceFence(t *testing.T) {
	markdown := `## Test: with source
` + "```p" + `
p;
begin
    print 42
end
end
` + "```" + `
` + "```past" + `
(program "p" (compound (print 42)))
` + "```" + `
` + "```diagnostics" + `
` + "```"

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)

	tc := testCases[0]
	be.Equal(t, tc.Source, "p;\nbegin\n    print 42\nend\nend\n")
	be.Equal(t, len(tc.Assertions), 1)
	be.Equal(t, tc.Assertions[0].Type, AssertionTypeDiagnostics)
}

func TestExtractTestCases_EmptyFile(t *testing.T) {
	testCases, err := ExtractTestCases("")
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 0)
}

func TestExtractTestCases_NoTestCases(t *testing.T) {
	markdown := `# Some document

This is just regular markdown content.

## Regular heading

No test cases here.`

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 0)
}

func TestExtractTestCases_NoTestCasesWithUnknownFence(t *testing.T) {
	markdown := `# Some document

` + "```go" + `
func main() {
    fmt.Println("Hello")
}
` + "```"

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "unknown fence language 'go' found outside of test case"))
}

func TestExtractTestCases_InvalidSexyAssertion(t *testing.T) {
	markdown := `## Test: invalid sexy
` + "```past" + `
(print 1)
` + "```" + `
` + "```ast" + `
(unclosed list
` + "```"

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "failed to parse Sexy assertion"))
	be.True(t, strings.Contains(err.Error(), "line"))
}

func TestExtractTestCases_InvalidSexyInput(t *testing.T) {
	markdown := `## Test: invalid input
` + "```past" + `
(program "p"
` + "```" + `
` + "```diagnostics" + `
` + "```"

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "failed to parse Sexy input in test 'invalid input'"))
}

func TestExtractTestCases_FenceOutsideTestCase(t *testing.T) {
	tests := []struct {
		name      string
		markdown  string
		fenceType string
	}{
		{
			"past fence outside test",
			"# Document\n\n```past\n(print 1)\n```\n",
			"past",
		},
		{
			"ast fence outside test",
			"# Document\n\n```ast\n(binary \"+\" 1 2)\n```\n",
			"ast",
		},
		{
			"symtab fence outside test",
			"# Document\n\n```symtab\nx variable\n```\n",
			"symtab",
		},
		{
			"asm fence outside test",
			"# Document\n\n```asm\nret\n```\n",
			"asm",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ExtractTestCases(test.markdown)
			be.True(t, err != nil)
			be.True(t, strings.Contains(err.Error(), test.fenceType+" fence found outside of test case"))
			be.True(t, strings.Contains(err.Error(), "line"))
		})
	}
}

func TestExtractTestCases_UnknownFenceLanguageInTest(t *testing.T) {
	markdown := `## Test: with unknown fence
` + "```python" + `
print("hello")
` + "```" + `
` + "```past" + `
(print 1)
` + "```" + `
` + "```asm" + `
li t0, 1
` + "```"

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "unknown fence language 'python'"))
	be.True(t, strings.Contains(err.Error(), "line"))
}

func TestExtractTestCases_TestMissingInputFence(t *testing.T) {
	markdown := `## Test: no input
` + "```ast" + `
(binary "+" 1 2)
` + "```"

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "test 'no input' has no input fence"))
}

func TestExtractTestCases_TestMissingAssertionFence(t *testing.T) {
	markdown := `## Test: no assertions
` + "```past" + `
(print 1)
` + "```"

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "test 'no assertions' has no assertion fences"))
}

func TestExtractTestCases_SourceFenceIsNotAnAssertion(t *testing.T) {
	markdown := `## Test: source only
` + "```past" + `
(print 1)
` + "```" + `
` + "```p" + `
print 1
` + "```"

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "test 'source only' has no assertion fences"))
}

func TestExtractTestCases_MultipleInputFences(t *testing.T) {
	markdown := `## Test: multiple inputs
` + "```past" + `
(print 1)
` + "```" + `
` + "```past" + `
(print 2)
` + "```" + `
` + "```ast" + `
(print 1)
` + "```"

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "multiple input fences found"))
	be.True(t, strings.Contains(err.Error(), "line"))
}

func TestExtractTestCases_AllowFencesWithoutLanguage(t *testing.T) {
	markdown := `# Document with generic code block

` + "```" + `
some code without language
` + "```" + `

## Test: valid test
` + "```past" + `
(print 1)
` + "```" + `
` + "```ast" + `
(print 1)
` + "```" + `

` + "```" + `
more code without language in test
` + "```"

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)
	be.Equal(t, testCases[0].Name, "valid test")
	be.Equal(t, testCases[0].Input, "(print 1)")
	be.Equal(t, len(testCases[0].Assertions), 1)
}

func TestExtractTestCases_ErrorInSecondTest(t *testing.T) {
	markdown := `## Test: first test
` + "```past" + `
(print 1)
` + "```" + `
` + "```ast" + `
(print 1)
` + "```" + `

## Test: second test missing input
` + "```ast" + `
(print 2)
` + "```"

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "test 'second test missing input' has no input fence"))
}

func TestExtractTestCases_ComplexSexyExpressions(t *testing.T) {
	markdown := `## Test: complex expression
` + "```past" + `
(binary "+"
 (ref "x")
 (binary "*"
  (ref "yyy")
  2.5))
` + "```" + `
` + "```ast" + `
(binary "+" (ref "x") (binary "*" (ref "yyy") 2.5))
` + "```"

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)

	input := testCases[0].ParsedSexy
	be.Equal(t, input.Type, NodeList)
	be.Equal(t, len(input.Items), 4)
	be.Equal(t, input.Items[0].Type, NodeSymbol)
	be.Equal(t, input.Items[0].Text, "binary")
	be.Equal(t, input.Items[1].Type, NodeString)
	be.Equal(t, input.Items[1].Text, "+")
	be.Equal(t, input.Items[2].Type, NodeList)

	inner := input.Items[3]
	be.Equal(t, inner.Type, NodeList)
	be.Equal(t, inner.Items[3].Type, NodeReal)
	be.Equal(t, inner.Items[3].Text, "2.5")

	be.Equal(t, testCases[0].Assertions[0].ParsedSexy.String(), input.String())
}
