package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	c := NewCategorizer()

	got := c.Categorize([]string{"ThroughHole", "Face", "Step", "StepHole", "blind_slot", "Pocket", "Face", "RoundPassage", "Repository"})

	assert.Equal(t, map[string][]string{
		"Step Labels":    {"Step", "StepHole"},
		"Hole Labels":    {"ThroughHole"},
		"Slot Labels":    {"blind_slot"},
		"Pocket Labels":  {"Pocket"},
		"Passage Labels": {"RoundPassage"},
		"Other Labels":   {"Face", "Repository"},
	}, got.AsMap())
}

func TestCategorizeIsCaseSensitive(t *testing.T) {
	got := NewCategorizer().Categorize([]string{"STEP", "HOLE"})
	assert.Equal(t, []string{"HOLE", "STEP"}, got.AsMap()[OtherCategory])
}

func TestCategorizeKeepsCategoryOrder(t *testing.T) {
	got := NewCategorizer().Categorize([]string{"Zpocket", "Ahole", "Bstep"})

	var names []string
	for _, g := range got {
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{"Step Labels", "Hole Labels", "Slot Labels", "Pocket Labels", "Passage Labels", "Other Labels"}, names)
	assert.Equal(t, []string{"Bstep", "Ahole", "Zpocket"}, got.Flatten())
}

func TestCustomCategories(t *testing.T) {
	c := NewCategorizer(Category{Name: "Chamfers", Keywords: []string{"Chamfer"}})
	got := c.Categorize([]string{"EdgeChamfer", "Step"})
	assert.Equal(t, map[string][]string{
		"Chamfers":    {"EdgeChamfer"},
		OtherCategory: {"Step"},
	}, got.AsMap())
}
