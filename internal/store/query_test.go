package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		in   string
		want []Term
	}{
		{"Point", []Term{{Filter: FilterText, Arg: "Point"}}},
		{"def:Point -type:trait", []Term{
			{Filter: FilterDef, Arg: "Point"},
			{Filter: FilterType, Arg: "trait", Not: true},
		}},
		{`+ref:lib::Point path:"src dir/"`, []Term{
			{Filter: FilterRef, Arg: "lib::Point", Qualified: true},
			{Filter: FilterPath, Arg: "src dir/"},
		}},
		{"lib::make", []Term{{Filter: FilterText, Arg: "lib::make"}}},
		{"def::x", []Term{{Filter: FilterText, Arg: "def::x"}}},
		{"-", []Term{{Filter: FilterText, Arg: "-"}}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			q, err := ParseQuery(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.Terms)
		})
	}
}

func TestParseQuery_Errors(t *testing.T) {
	for _, in := range []string{"", "   ", "type:widget", "def:", "-path:", "def:a ref:b"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseQuery(in)
			assert.Error(t, err)
		})
	}
}

func mustParse(t *testing.T, s string) *Query {
	t.Helper()
	q, err := ParseQuery(s)
	require.NoError(t, err)
	return q
}

func TestStore_Search(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	id, err := s.SaveRun(ctx, "/ws", sampleIndex(t), 0)
	require.NoError(t, err)

	tests := []struct {
		query string
		want  []string
	}{
		{"point*", []string{"lib::Point", "lib::PointCloud"}},
		{"point* -def:pointcloud", []string{"lib::Point"}},
		{"type:function", []string{"lib::make"}},
		{"-type:struct", []string{"lib", "lib::make"}},
		{"+def:make", nil},
		{"+def:lib::make", []string{"lib::make"}},
		{"path:lib def:make", []string{"lib::make"}},
		{"-path:lib", nil},
		{"path:*.rs type:struct", []string{"lib::Point", "lib::PointCloud"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			hits, err := s.Search(ctx, id, mustParse(t, tt.query))
			require.NoError(t, err)
			var got []string
			for _, h := range hits {
				assert.False(t, h.IsRef())
				got = append(got, h.Qualified)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_SearchReferences(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	id, err := s.SaveRun(ctx, "/ws", sampleIndex(t), 0)
	require.NoError(t, err)

	hits, err := s.Search(ctx, id, mustParse(t, "ref:Point"))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.True(t, hits[0].IsRef())
	assert.Equal(t, Hit{Kind: "struct", Qualified: "lib::Point", File: "lib.rs", Line: 5, Column: 1, Path: "Point", Role: "type"}, hits[0])

	tests := []struct {
		query string
		want  int
	}{
		{"ref:*", 1},
		{"ref:point* path:lib", 1},
		{"ref:* -type:struct", 0},
		{"ref:Nope", 0},
		{"ref:* Point", 1},
		{"ref:* -Point", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			hits, err := s.Search(ctx, id, mustParse(t, tt.query))
			require.NoError(t, err)
			assert.Len(t, hits, tt.want)
		})
	}
}
