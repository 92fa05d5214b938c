package mixin_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/schema/field"
	"github.com/syssam/sqlmap/schema/mixin"
)

// TestMixinImplementsInterface tests that the built-in mixins implement sqlmap.Mixin.
func TestMixinImplementsInterface(t *testing.T) {
	var _ sqlmap.Mixin = mixin.Schema{}
	var _ sqlmap.Mixin = mixin.ID{}
	var _ sqlmap.Mixin = mixin.Time{}
	var _ sqlmap.Mixin = mixin.SoftDelete{}
	var _ sqlmap.Mixin = mixin.UUID{}
	var _ sqlmap.Mixin = mixin.Tenant{}
	assert.Nil(t, mixin.Schema{}.Fields())
}

func TestID(t *testing.T) {
	fields := mixin.ID{}.Fields()
	require.Len(t, fields, 1)
	fd := fields[0].Descriptor()
	assert.Equal(t, "ID", fd.Name)
	assert.Equal(t, "Id", fd.Column())
	assert.True(t, fd.Unique)
	assert.True(t, fd.AutoIncrement)
	assert.Equal(t, field.TypeInt, fd.Info.Type)
}

func TestUUID(t *testing.T) {
	fd := mixin.UUID{}.Fields()[0].Descriptor()
	assert.Equal(t, "Id", fd.Column())
	assert.True(t, fd.Unique)
	assert.False(t, fd.AutoIncrement)
	assert.Equal(t, field.TypeUUID, fd.Info.Type)
	v1, ok := fd.DefaultValue()
	require.True(t, ok)
	v2, _ := fd.DefaultValue()
	assert.NotEqual(t, v1, v2)
}

func TestTenant(t *testing.T) {
	fd := mixin.Tenant{}.Fields()[0].Descriptor()
	assert.Equal(t, "TenantID", fd.Name)
	assert.Equal(t, "TenantId", fd.Column())
	assert.True(t, fd.Indexed)
	assert.True(t, fd.Filter)
}

func TestTime(t *testing.T) {
	fields := mixin.Time{}.Fields()
	require.Len(t, fields, 2)
	for _, f := range fields {
		fd := f.Descriptor()
		assert.Equal(t, field.TypeTime, fd.Info.Type)
		v, ok := fd.DefaultValue()
		require.True(t, ok)
		assert.NotZero(t, v)
	}
}

func TestSoftDelete(t *testing.T) {
	fd := mixin.SoftDelete{}.Fields()[0].Descriptor()
	assert.Equal(t, "Deleted", fd.Name)
	assert.True(t, fd.Optional)
	assert.True(t, fd.Filter)
}

func TestRenameColumns(t *testing.T) {
	m := mixin.RenameColumns(mixin.Time{}, strings.ToLower)
	fields := m.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, "created", fields[0].Descriptor().Column())
	assert.Equal(t, "Created", fields[0].Descriptor().Name)
	assert.Equal(t, "updated", fields[1].Descriptor().Column())
}
