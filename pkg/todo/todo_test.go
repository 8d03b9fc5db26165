// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package todo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Write_ReplaceSemantics(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Write(WriteArgs{Todos: []Item{
		{ID: "1", Content: "first", Status: StatusPending},
	}}))
	require.NoError(t, s.Write(WriteArgs{Todos: []Item{
		{ID: "2", Content: "second", Status: StatusPending},
	}}))
	all := s.All()
	require.Len(t, all, 1)
	assert.Equal(t, "2", all[0].ID, "a non-merge write must replace the whole list")
}

func TestStore_Write_MergeByID(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Write(WriteArgs{Todos: []Item{
		{ID: "1", Content: "first", Status: StatusPending},
		{ID: "2", Content: "second", Status: StatusPending},
	}}))
	require.NoError(t, s.Write(WriteArgs{Merge: true, Todos: []Item{
		{ID: "1", Content: "first, updated", Status: StatusCompleted},
		{ID: "3", Content: "third", Status: StatusPending},
	}}))
	all := s.All()
	require.Len(t, all, 3)
	byID := map[string]Item{}
	for _, it := range all {
		byID[it.ID] = it
	}
	assert.Equal(t, StatusCompleted, byID["1"].Status)
	assert.Equal(t, "second", byID["2"].Content)
	assert.Equal(t, "third", byID["3"].Content)
}

func TestStore_Write_RejectsInvalidItems(t *testing.T) {
	s := NewStore()
	t.Run("missing id", func(t *testing.T) {
		err := s.Write(WriteArgs{Todos: []Item{{Content: "x", Status: StatusPending}}})
		assert.Error(t, err)
	})
	t.Run("missing content", func(t *testing.T) {
		err := s.Write(WriteArgs{Todos: []Item{{ID: "1", Status: StatusPending}}})
		assert.Error(t, err)
	})
	t.Run("invalid status", func(t *testing.T) {
		err := s.Write(WriteArgs{Todos: []Item{{ID: "1", Content: "x", Status: "bogus"}}})
		assert.Error(t, err)
	})
}

func TestStore_Summary(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Write(WriteArgs{Todos: []Item{
		{ID: "1", Content: "a", Status: StatusPending},
		{ID: "2", Content: "b", Status: StatusCompleted},
		{ID: "3", Content: "c", Status: StatusCompleted},
	}}))
	summary := s.Summary()
	assert.Equal(t, 1, summary[StatusPending])
	assert.Equal(t, 2, summary[StatusCompleted])
}

func TestStore_FormatForContext(t *testing.T) {
	s := NewStore()
	assert.Empty(t, s.FormatForContext(), "an empty store renders nothing")

	require.NoError(t, s.Write(WriteArgs{Todos: []Item{{ID: "1", Content: "do the thing", Status: StatusInProgress}}}))
	rendered := s.FormatForContext()
	assert.Contains(t, rendered, "do the thing")
	assert.Contains(t, rendered, "in_progress")
}

func TestStore_ReplacePreservesInsertionOrder(t *testing.T) {
	s := NewStore()
	items := []Item{
		{ID: "1", Content: "a", Status: StatusPending},
		{ID: "2", Content: "b", Status: StatusPending},
	}
	s.Replace(items)
	assert.Equal(t, items, s.All())
}
