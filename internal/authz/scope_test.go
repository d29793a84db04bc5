package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeIsGlobal(t *testing.T) {
	assert.True(t, GlobalScope().IsGlobal())
	assert.False(t, SchoolScope(7).IsGlobal())
	assert.False(t, GenerationScope(3).IsGlobal())
}

func TestScopeMatches(t *testing.T) {
	cases := []struct {
		name   string
		scope  Scope
		target Scope
		want   bool
	}{
		{"global matches everything", GlobalScope(), SchoolScope(7), true},
		{"global matches global", GlobalScope(), GlobalScope(), true},
		{"same school", SchoolScope(7), SchoolScope(7), true},
		{"different school", SchoolScope(7), SchoolScope(9), false},
		{"school scope, global target fails closed", SchoolScope(7), GlobalScope(), false},
		{"school scope, community target fails closed", SchoolScope(7), CommunityScope(7), false},
		{"community match", CommunityScope(4), CommunityScope(4), true},
		{"network match", NetworkScope(2), NetworkScope(2), true},
		{"generation match", GenerationScope(1), GenerationScope(1), true},
		{
			"richer target still matches",
			SchoolScope(7),
			Scope{SchoolID: ptr(7), CommunityID: ptr(4)},
			true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.scope.Matches(tc.target))
		})
	}
}

func TestScopeDimensions(t *testing.T) {
	assert.Equal(t, 0, GlobalScope().Dimensions())
	assert.Equal(t, 1, SchoolScope(7).Dimensions())
	assert.Equal(t, 2, Scope{SchoolID: ptr(7), NetworkID: ptr(2)}.Dimensions())
}

func TestScopeString(t *testing.T) {
	assert.Equal(t, "global", GlobalScope().String())
	assert.Equal(t, "school:7", SchoolScope(7).String())
	assert.Equal(t, "school:7,community:4", Scope{SchoolID: ptr(7), CommunityID: ptr(4)}.String())
}

func ptr(v int64) *int64 { return &v }
