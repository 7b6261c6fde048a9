package dynamic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slientgoat/prost-reflect/dynamic"
)

func TestMergeReplacesScalars(t *testing.T) {
	pool := buildTestPool(t)
	dst := newTestMessage(t, pool, "testdata.Widget")
	dst.SetFieldByName("count", int32(1))
	dst.SetFieldByName("label", "keep")

	src := newTestMessage(t, pool, "testdata.Widget")
	src.SetFieldByName("count", int32(2))

	require.NoError(t, dynamic.TryMerge(dst, src))
	assert.Equal(t, int32(2), dst.GetFieldByName("count"))
	// fields unset in src are left alone
	assert.Equal(t, "keep", dst.GetFieldByName("label"))
}

func TestMergeAppendsRepeatedFields(t *testing.T) {
	pool := buildTestPool(t)
	dst := newTestMessage(t, pool, "testdata.Widget")
	dst.SetFieldByName("measurements", []int32{1})
	src := newTestMessage(t, pool, "testdata.Widget")
	src.SetFieldByName("measurements", []int32{2, 3})

	dynamic.Merge(dst, src)
	assert.Equal(t, []interface{}{int32(1), int32(2), int32(3)}, dst.GetFieldByName("measurements"))
}

func TestMergeCombinesMaps(t *testing.T) {
	pool := buildTestPool(t)
	dst := newTestMessage(t, pool, "testdata.Widget")
	dst.PutMapFieldByNumber(6, "a", int32(1))
	dst.PutMapFieldByNumber(6, "b", int32(2))
	src := newTestMessage(t, pool, "testdata.Widget")
	src.PutMapFieldByNumber(6, "b", int32(9))
	src.PutMapFieldByNumber(6, "c", int32(3))

	dynamic.Merge(dst, src)
	assert.Equal(t, int32(1), dst.GetMapFieldByNumber(6, "a"))
	assert.Equal(t, int32(9), dst.GetMapFieldByNumber(6, "b"))
	assert.Equal(t, int32(3), dst.GetMapFieldByNumber(6, "c"))
}

func TestMergeRecursesIntoMessages(t *testing.T) {
	pool := buildTestPool(t)
	dst := newTestMessage(t, pool, "testdata.Widget")
	dstChild := newTestMessage(t, pool, "testdata.Widget")
	dstChild.SetFieldByName("count", int32(1))
	dst.SetFieldByName("child", dstChild)

	src := newTestMessage(t, pool, "testdata.Widget")
	srcChild := newTestMessage(t, pool, "testdata.Widget")
	srcChild.SetFieldByName("label", "x")
	src.SetFieldByName("child", srcChild)

	dynamic.Merge(dst, src)
	merged := dst.GetFieldByName("child").(*dynamic.Message)
	assert.Equal(t, int32(1), merged.GetFieldByName("count"))
	assert.Equal(t, "x", merged.GetFieldByName("label"))
}

func TestMergeOneOfMemberDisplaces(t *testing.T) {
	pool := buildTestPool(t)
	dst := newTestMessage(t, pool, "testdata.Widget")
	dst.SetFieldByName("text", "t")
	src := newTestMessage(t, pool, "testdata.Widget")
	src.SetFieldByName("number", int64(5))

	dynamic.Merge(dst, src)
	assert.False(t, dst.HasFieldByName("text"))
	assert.Equal(t, int64(5), dst.GetFieldByName("number"))
}

func TestMergeCopiesDeeply(t *testing.T) {
	pool := buildTestPool(t)
	dst := newTestMessage(t, pool, "testdata.Widget")
	src := newTestMessage(t, pool, "testdata.Widget")
	srcChild := newTestMessage(t, pool, "testdata.Widget")
	srcChild.SetFieldByName("label", "x")
	src.SetFieldByName("child", srcChild)

	dynamic.Merge(dst, src)

	// mutating the source afterwards must not leak into the destination
	srcChild.SetFieldByName("label", "changed")
	got := dst.GetFieldByName("child").(*dynamic.Message)
	assert.Equal(t, "x", got.GetFieldByName("label"))
}

func TestMergeAppendsUnknownFields(t *testing.T) {
	pool := buildTestPool(t)
	dst := newTestMessage(t, pool, "testdata.Widget")
	require.NoError(t, dst.Unmarshal(wireBytes(t, `98: 2`)))
	src := newTestMessage(t, pool, "testdata.Widget")
	require.NoError(t, src.Unmarshal(wireBytes(t, `99: 1`)))

	dynamic.Merge(dst, src)
	assert.Equal(t, []int32{98, 99}, dst.GetUnknownFields())
}

func TestMergeTypeChecking(t *testing.T) {
	pool := buildTestPool(t)
	w := newTestMessage(t, pool, "testdata.Widget")
	s := newTestMessage(t, pool, "testdata.Sample")

	err := dynamic.TryMerge(w, s)
	require.ErrorContains(t, err, "different types")
	assert.Panics(t, func() { dynamic.Merge(w, s) })

	err = dynamic.TryMerge(nil, w)
	require.ErrorContains(t, err, "nil")
	err = dynamic.TryMerge(w, nil)
	require.ErrorContains(t, err, "nil")
}
