package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func hookNames(hooks []*Hook) []string {
	names := make([]string, len(hooks))
	for i, h := range hooks {
		names[i] = h.Name
	}
	return names
}

func TestMergedHooks_BeforeRunsOuterThenInner(t *testing.T) {
	sw := &Target{BeforeDeploy: []*Hook{{Name: "s1"}}}
	children := []*Target{
		{BeforeDeploy: []*Hook{{Name: "a1"}, {Name: "a2"}}},
		{BeforeDeploy: []*Hook{{Name: "b1"}}},
	}

	merged := MergedHooks(sw, children)
	assert.Equal(t, []string{"s1", "a1", "a2", "b1"}, hookNames(merged.BeforeDeploy))
}

func TestMergedHooks_AfterRunsInnerThenOuter(t *testing.T) {
	sw := &Target{Deployed: []*Hook{{Name: "s1"}}}
	children := []*Target{
		{Deployed: []*Hook{{Name: "a1"}, {Name: "a2"}}},
		{Deployed: []*Hook{{Name: "b1"}}},
	}

	merged := MergedHooks(sw, children)
	assert.Equal(t, []string{"b1", "a2", "a1", "s1"}, hookNames(merged.Deployed))
}

func TestMergedHooks_EmptyChildren(t *testing.T) {
	sw := &Target{
		BeforeDeploy: []*Hook{{Name: "s1"}},
		Deployed:     []*Hook{{Name: "s2"}},
	}

	merged := MergedHooks(sw, nil)
	assert.Equal(t, []string{"s1"}, hookNames(merged.BeforeDeploy))
	assert.Equal(t, []string{"s2"}, hookNames(merged.Deployed))
}

func TestMergedHooks_AllLifecyclePositions(t *testing.T) {
	sw := &Target{
		BeforePull:   []*Hook{{Name: "bp"}},
		Pulled:       []*Hook{{Name: "p"}},
		BeforeDelete: []*Hook{{Name: "bd"}},
		Deleted:      []*Hook{{Name: "d"}},
		Prepare:      []*Hook{{Name: "pr"}},
	}
	child := &Target{
		BeforePull:   []*Hook{{Name: "c-bp"}},
		Pulled:       []*Hook{{Name: "c-p"}},
		BeforeDelete: []*Hook{{Name: "c-bd"}},
		Deleted:      []*Hook{{Name: "c-d"}},
		Prepare:      []*Hook{{Name: "c-pr"}},
	}

	merged := MergedHooks(sw, []*Target{child})
	assert.Equal(t, []string{"bp", "c-bp"}, hookNames(merged.BeforePull))
	assert.Equal(t, []string{"c-p", "p"}, hookNames(merged.Pulled))
	assert.Equal(t, []string{"bd", "c-bd"}, hookNames(merged.BeforeDelete))
	assert.Equal(t, []string{"c-d", "d"}, hookNames(merged.Deleted))
	assert.Equal(t, []string{"pr", "c-pr"}, hookNames(merged.Prepare))
}
