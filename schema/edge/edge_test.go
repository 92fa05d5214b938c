package edge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/schema/edge"
)

// Test schema types for edge testing.
type (
	User    struct{ sqlmap.Schema }
	Post    struct{ sqlmap.Schema }
	Tag     struct{ sqlmap.Schema }
	PostTag struct{ sqlmap.Schema }
)

func TestEdgeBuilders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		build    func() *edge.Descriptor
		validate func(t *testing.T, desc *edge.Descriptor)
	}{
		{
			name: "to_edge",
			build: func() *edge.Descriptor {
				return edge.To("Author", User.Type).Descriptor()
			},
			validate: func(t *testing.T, desc *edge.Descriptor) {
				require.NoError(t, desc.Err)
				assert.Equal(t, "Author", desc.Name)
				assert.Equal(t, "User", desc.Type)
				assert.False(t, desc.Many)
				assert.False(t, desc.Weak)
				assert.Equal(t, "AuthorId", desc.Column())
			},
		},
		{
			name: "value_target",
			build: func() *edge.Descriptor {
				return edge.To("Author", &User{}).StorageKey("UserId").Optional().Descriptor()
			},
			validate: func(t *testing.T, desc *edge.Descriptor) {
				require.NoError(t, desc.Err)
				assert.Equal(t, "User", desc.Type)
				assert.Equal(t, "UserId", desc.Column())
				assert.True(t, desc.Optional)
			},
		},
		{
			name: "many_edge",
			build: func() *edge.Descriptor {
				return edge.Many("Posts", Post.Type).Ref("Author").Descriptor()
			},
			validate: func(t *testing.T, desc *edge.Descriptor) {
				require.NoError(t, desc.Err)
				assert.True(t, desc.Many)
				assert.Equal(t, "Author", desc.RefName)
				assert.Nil(t, desc.Through)
			},
		},
		{
			name: "through_edge",
			build: func() *edge.Descriptor {
				return edge.Many("Tags", Tag.Type).Through(PostTag.Type).Descriptor()
			},
			validate: func(t *testing.T, desc *edge.Descriptor) {
				require.NoError(t, desc.Err)
				require.NotNil(t, desc.Through)
				assert.Equal(t, "PostTag", desc.Through.Name())
			},
		},
		{
			name: "weak_bound_edge",
			build: func() *edge.Descriptor {
				return edge.To("Editor", User.Type).Weak().Field("EditorID").Comment("last editor").Descriptor()
			},
			validate: func(t *testing.T, desc *edge.Descriptor) {
				require.NoError(t, desc.Err)
				assert.True(t, desc.Weak)
				assert.Equal(t, "EditorID", desc.Field)
				assert.Equal(t, "last editor", desc.Comment)
			},
		},
		{
			name: "through_on_to_edge",
			build: func() *edge.Descriptor {
				return edge.To("Tag", Tag.Type).Through(PostTag.Type).Descriptor()
			},
			validate: func(t *testing.T, desc *edge.Descriptor) {
				assert.EqualError(t, desc.Err, `edge "Tag": Through requires a Many edge`)
			},
		},
		{
			name: "field_on_many_edge",
			build: func() *edge.Descriptor {
				return edge.Many("Posts", Post.Type).Field("PostID").Descriptor()
			},
			validate: func(t *testing.T, desc *edge.Descriptor) {
				assert.Error(t, desc.Err)
			},
		},
		{
			name: "invalid_target",
			build: func() *edge.Descriptor {
				return edge.To("Count", 1).Descriptor()
			},
			validate: func(t *testing.T, desc *edge.Descriptor) {
				assert.EqualError(t, desc.Err, `edge "Count": target int is not a struct type`)
			},
		},
		{
			name: "nil_target",
			build: func() *edge.Descriptor {
				return edge.To("Nothing", nil).Descriptor()
			},
			validate: func(t *testing.T, desc *edge.Descriptor) {
				assert.Error(t, desc.Err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.validate(t, tt.build())
		})
	}
}
