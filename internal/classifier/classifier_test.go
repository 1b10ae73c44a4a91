package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyFastSimpleCommand(t *testing.T) {
	cases := map[string]string{
		"exit": "exit", "salir": "exit", "help": "help", "ayuda": "help",
		"ls": "list", "archivos": "list", "historial": "history",
	}
	for input, wantAction := range cases {
		result := ClassifyFast(input)
		assert.Equal(t, TaskKindSimpleCommand, result.Kind, input)
		assert.Equal(t, wantAction, result.Action, input)
	}
}

func TestClassifyFastCodeGenerationRequiresVerbAndEntity(t *testing.T) {
	result := ClassifyFast("generate a function that reverses a string")
	assert.Equal(t, TaskKindCodeGeneration, result.Kind)

	result = ClassifyFast("generate some ideas for a blog post")
	assert.Equal(t, TaskKindNone, result.Kind, "generation verb without target entity should not match")
}

func TestClassifyFastNoneForAmbiguousInput(t *testing.T) {
	result := ClassifyFast("what does this error mean")
	assert.Equal(t, TaskKindNone, result.Kind)
}

func TestClassifyComplexityPureMath(t *testing.T) {
	assert.Equal(t, ComplexityGeneral, ClassifyComplexity("2 + 2"))
}

func TestClassifyComplexityShortGreeting(t *testing.T) {
	assert.Equal(t, ComplexityGeneral, ClassifyComplexity("hi there"))
}

func TestClassifyComplexityDefaultsToCodeContext(t *testing.T) {
	assert.Equal(t, ComplexityCodeContext, ClassifyComplexity("why is this function throwing a nil pointer"))
}

func TestClassifyComplexityDigitsWithCodeKeywordIsCodeContext(t *testing.T) {
	assert.Equal(t, ComplexityCodeContext, ClassifyComplexity("fix the bug in line 42"))
}

func TestShouldPlanRequiresPlanningVerb(t *testing.T) {
	assert.True(t, ShouldPlan("please refactor the auth module"))
	assert.False(t, ShouldPlan("what does this function do"))
}
