package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSynthesizeSuccessRequiresNoFailuresOrTimeouts(t *testing.T) {
	s := New()
	syn := s.Synthesize([]ActionResult{
		{ActionType: "create_file", Status: "completed"},
		{ActionType: "create_file", Status: "completed"},
	})
	assert.True(t, syn.Success)
	assert.Equal(t, 2, syn.CompletedActions)
	assert.Equal(t, 1, s.SynthesesPerformed())
}

func TestSynthesizeFailsOnAnyFailureOrTimeout(t *testing.T) {
	s := New()
	syn := s.Synthesize([]ActionResult{
		{ActionType: "create_file", Status: "completed"},
		{ActionType: "create_file", Status: "timeout"},
	})
	assert.False(t, syn.Success)
	assert.Equal(t, 1, syn.TimeoutActions)
}

func TestStructuralHierarchyRequiresAtLeastTwoDirectories(t *testing.T) {
	s := New()

	single := s.Synthesize([]ActionResult{
		{ActionType: "create_directory", Status: "completed"},
	})
	assert.Empty(t, single.EmergentPatterns)

	double := s.Synthesize([]ActionResult{
		{ActionType: "create_directory", Status: "completed"},
		{ActionType: "create_directory", Status: "completed"},
	})
	require := assert.New(t)
	require.Len(double.EmergentPatterns, 1)
	require.Equal("structural_hierarchy", double.EmergentPatterns[0].Pattern)
}

func TestBatchAndTemplatePatternsDetected(t *testing.T) {
	s := New()
	syn := s.Synthesize([]ActionResult{
		{ActionType: "batch_create_files", Status: "completed"},
		{ActionType: "apply_template", Status: "completed"},
	})
	var names []string
	for _, p := range syn.EmergentPatterns {
		names = append(names, p.Pattern)
	}
	assert.Contains(t, names, "batch_optimization")
	assert.Contains(t, names, "template_abstraction")
}
