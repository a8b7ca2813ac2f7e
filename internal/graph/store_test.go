package graph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemacanvas/schemacanvas/internal/schema"
)

func seqIDs() Option {
	n := 0
	return WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
}

func boolp(v bool) *bool    { return &v }
func strp(v string) *string { return &v }

func userModel() schema.Model {
	return schema.Model{
		Name: "User",
		Columns: []schema.Column{
			{Name: "id", Type: schema.ColumnType{Name: schema.TypeInteger}, PrimaryKey: true, Autoincrement: true},
			{Name: "email", Type: schema.ColumnType{Name: schema.TypeString}},
		},
	}
}

func TestAddModelFillsDefaults(t *testing.T) {
	s := New(seqIDs())
	id := s.AddModel(userModel())

	m, ok := s.Model(id)
	require.True(t, ok)
	assert.Equal(t, "users", m.Tablename)
	require.NotNil(t, m.Position)
	assert.Equal(t, schema.DefaultPosition, *m.Position)
	for _, c := range m.Columns {
		assert.NotEmpty(t, c.ID)
	}
	assert.True(t, s.Dirty())
}

func TestUnknownIDIsNotFound(t *testing.T) {
	s := New()
	events := 0
	s.Subscribe(func(Event) { events++ })

	assert.ErrorIs(t, s.UpdateModel("nope", ModelPatch{Name: strp("X")}), ErrNotFound)
	assert.ErrorIs(t, s.DeleteModel("nope"), ErrNotFound)
	_, err := s.AddColumn("nope", schema.Column{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteEnum("nope"), ErrNotFound)
	assert.ErrorIs(t, s.UpdatePosition("nope", schema.Position{}), ErrNotFound)

	assert.Zero(t, events)
	assert.False(t, s.Dirty())
}

func TestPrimaryKeyColumnIsLocked(t *testing.T) {
	s := New(seqIDs())
	id := s.AddModel(userModel())
	m, _ := s.Model(id)
	pk := m.PrimaryKey()

	err := s.UpdateColumn(id, pk.ID, ColumnPatch{
		Name:          strp("user_id"),
		Type:          &schema.ColumnType{Name: schema.TypeUUID},
		PrimaryKey:    boolp(false),
		Autoincrement: boolp(false),
		Index:         boolp(true),
	})
	require.NoError(t, err)

	m, _ = s.Model(id)
	got := m.ColumnByID(pk.ID)
	assert.Equal(t, "id", got.Name)
	assert.Equal(t, schema.TypeInteger, got.Type.Name)
	assert.True(t, got.PrimaryKey)
	assert.True(t, got.Autoincrement)
	assert.True(t, got.Index, "unlocked fields still apply")
}

func TestUpdateColumnClearsDefault(t *testing.T) {
	s := New(seqIDs())
	id := s.AddModel(userModel())
	m, _ := s.Model(id)
	email := m.Column("email")

	require.NoError(t, s.UpdateColumn(id, email.ID, ColumnPatch{Default: strp("'x'")}))
	m, _ = s.Model(id)
	require.NotNil(t, m.Column("email").Default)

	require.NoError(t, s.UpdateColumn(id, email.ID, ColumnPatch{Default: strp("")}))
	m, _ = s.Model(id)
	assert.Nil(t, m.Column("email").Default)
}

func TestUpdateIsAtomic(t *testing.T) {
	s := New(seqIDs())
	id := s.AddModel(userModel())
	s.MarkSaved()

	var events []Event
	s.Subscribe(func(e Event) { events = append(events, e) })

	boom := errors.New("boom")
	err := s.Update(func(tx *Tx) error {
		if _, err := tx.AddColumn(id, schema.Column{Name: "age"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	m, _ := s.Model(id)
	assert.Len(t, m.Columns, 2)
	assert.Empty(t, events)
	assert.False(t, s.Dirty())

	err = s.Update(func(tx *Tx) error {
		if _, err := tx.AddColumn(id, schema.Column{Name: "age"}); err != nil {
			return err
		}
		_, err := tx.AddRelationship(id, schema.Relationship{Name: "posts", Target: "Post"})
		return err
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventChanged, events[0].Kind)
	assert.True(t, events[0].Dirty)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New(seqIDs())
	id := s.AddModel(userModel())

	snap := s.Snapshot()
	snap.Models[0].Name = "Changed"
	snap.Models[0].Columns[0].Name = "changed"

	m, _ := s.Model(id)
	assert.Equal(t, "User", m.Name)
	assert.Equal(t, "id", m.Columns[0].Name)
}

func TestRelationshipLifecycle(t *testing.T) {
	s := New(seqIDs())
	id := s.AddModel(userModel())

	relID, err := s.AddRelationship(id, schema.Relationship{
		Name:    "posts",
		Target:  "Post",
		Cascade: []schema.Cascade{schema.CascadeAll, schema.CascadeAll},
	})
	require.NoError(t, err)

	m, _ := s.Model(id)
	assert.Equal(t, []schema.Cascade{schema.CascadeAll}, m.Relationships[0].Cascade)

	kind := schema.OneToMany
	require.NoError(t, s.UpdateRelationship(id, relID, RelationshipPatch{Kind: &kind}))
	m, _ = s.Model(id)
	assert.Equal(t, schema.OneToMany, m.Relationships[0].Kind())

	require.NoError(t, s.DeleteRelationship(id, relID))
	assert.ErrorIs(t, s.DeleteRelationship(id, relID), ErrNotFound)
}

func TestEnumsAndPositions(t *testing.T) {
	s := New(seqIDs())
	enumID := s.AddEnum(schema.EnumDefinition{Name: "Status", Values: []string{"a", "b"}})
	modelID := s.AddModel(userModel())

	require.NoError(t, s.UpdateEnum(enumID, EnumPatch{Values: []string{"a", "b", "c"}}))
	require.NoError(t, s.UpdatePosition(enumID, schema.Position{X: 5, Y: 6}))
	require.NoError(t, s.UpdatePosition(modelID, schema.Position{X: 7, Y: 8}))

	e, ok := s.Enum(enumID)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, e.Values)
	assert.Equal(t, schema.Position{X: 5, Y: 6}, *e.Position)

	m, _ := s.Model(modelID)
	assert.Equal(t, schema.Position{X: 7, Y: 8}, *m.Position)
}

func TestAssociationTables(t *testing.T) {
	s := New(seqIDs())
	id := s.AddAssociationTable(schema.AssociationTable{
		Name:      "PostTags",
		Tablename: "post_tags",
		Columns:   []schema.Column{{Name: "post_id"}, {Name: "tag_id"}},
	})

	cols := []schema.Column{{Name: "post_id"}}
	require.NoError(t, s.UpdateAssociationTable(id, AssociationTablePatch{Columns: &cols}))
	a, ok := s.AssociationTable(id)
	require.True(t, ok)
	require.Len(t, a.Columns, 1)
	assert.NotEmpty(t, a.Columns[0].ID)

	require.NoError(t, s.DeleteAssociationTable(id))
	assert.Empty(t, s.Snapshot().AssociationTables)
}

func TestLoadGraphAndClearResetDirty(t *testing.T) {
	s := New(seqIDs())
	var kinds []EventKind
	s.Subscribe(func(e Event) { kinds = append(kinds, e.Kind) })

	s.LoadGraph([]schema.Model{userModel(), {Name: "Post", Tablename: "posts"}}, nil, nil)
	assert.False(t, s.Dirty())
	snap := s.Snapshot()
	require.Len(t, snap.Models, 2)
	assert.Equal(t, "User", snap.Models[0].Name)
	assert.Equal(t, "Post", snap.Models[1].Name)

	_, ok := s.ModelByTablename("posts")
	assert.True(t, ok)
	_, ok = s.ModelByName("Post")
	assert.True(t, ok)

	s.AddEnum(schema.EnumDefinition{Name: "Role", Values: []string{"admin"}})
	assert.True(t, s.Dirty())

	s.Clear()
	assert.False(t, s.Dirty())
	assert.Empty(t, s.Snapshot().Models)
	assert.Equal(t, []EventKind{EventLoaded, EventChanged, EventCleared}, kinds)
}

func TestUnsubscribe(t *testing.T) {
	s := New()
	calls := 0
	unsub := s.Subscribe(func(Event) { calls++ })
	s.AddModel(userModel())
	unsub()
	s.AddModel(userModel())
	assert.Equal(t, 1, calls)
}

func TestDeleteModelLeavesReferences(t *testing.T) {
	s := New(seqIDs())
	userID := s.AddModel(userModel())
	postID := s.AddModel(schema.Model{
		Name: "Post",
		Columns: []schema.Column{
			{Name: "user_id", Type: schema.ColumnType{Name: schema.TypeInteger}, ForeignKey: "users.id"},
		},
	})

	require.NoError(t, s.DeleteModel(userID))
	post, ok := s.Model(postID)
	require.True(t, ok)
	assert.Equal(t, "users.id", post.Columns[0].ForeignKey)
}

func TestSuggestNames(t *testing.T) {
	tests := []struct {
		model string
		table string
	}{
		{"User", "users"},
		{"BlogPost", "blog_posts"},
		{"Category", "categories"},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.table, SuggestTablename(tt.model))
			assert.Equal(t, tt.model, SuggestModelName(tt.table))
		})
	}
	assert.Empty(t, SuggestTablename(""))
}
