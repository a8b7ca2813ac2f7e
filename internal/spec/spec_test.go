package spec

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemacanvas/schemacanvas/internal/graph"
	"github.com/schemacanvas/schemacanvas/internal/schema"
)

func intp(v int) *int { return &v }

func sampleStore(t *testing.T) *graph.Store {
	t.Helper()
	def := "now()"
	store := graph.New()
	store.LoadGraph(
		[]schema.Model{
			{
				Name:      "User",
				Tablename: "users",
				Columns: []schema.Column{
					{Name: "id", Type: schema.ColumnType{Name: schema.TypeInteger}, PrimaryKey: true, Autoincrement: true},
					{Name: "email", Type: schema.ColumnType{Name: schema.TypeVarchar, Length: intp(255)}, Unique: true},
					{Name: "balance", Type: schema.ColumnType{Name: schema.TypeNumeric, Precision: intp(10), Scale: intp(2)}, Nullable: true},
					{Name: "role", Type: schema.ColumnType{Name: schema.TypeEnum, EnumClass: "Role"}},
					{Name: "created_at", Type: schema.ColumnType{Name: schema.TypeDateTime}, Default: &def},
				},
				Relationships: []schema.Relationship{
					{Name: "posts", Target: "Post", BackPopulates: "user", Uselist: schema.OneToMany.Uselist(), Cascade: []schema.Cascade{schema.CascadeAll, schema.CascadeDeleteOrphan}},
				},
				Position: &schema.Position{X: 250, Y: 300},
			},
			{
				Name:      "Post",
				Tablename: "posts",
				Columns: []schema.Column{
					{Name: "id", Type: schema.ColumnType{Name: schema.TypeInteger}, PrimaryKey: true},
					{Name: "user_id", Type: schema.ColumnType{Name: schema.TypeInteger}, Nullable: true, ForeignKey: "users.id"},
				},
				Relationships: []schema.Relationship{
					{Name: "user", Target: "User", BackPopulates: "posts", Uselist: schema.ManyToOne.Uselist()},
				},
				Position: &schema.Position{X: 600, Y: 120},
			},
		},
		[]schema.EnumDefinition{
			{Name: "Role", Values: []string{"admin", "member"}, Position: &schema.Position{X: -40, Y: 75.5}},
		},
		[]schema.AssociationTable{
			{Name: "PostTags", Tablename: "post_tags", Columns: []schema.Column{
				{Name: "post_id", Type: schema.ColumnType{Name: schema.TypeInteger}, ForeignKey: "posts.id"},
			}},
		},
	)
	return store
}

func sampleSettings() Settings {
	return Settings{
		Project:  json.RawMessage(`{"name":"blog"}`),
		Database: json.RawMessage(`{"db_provider":"postgresql"}`),
	}
}

func TestRoundTrip(t *testing.T) {
	store := sampleStore(t)
	first := Export(store.Snapshot(), sampleSettings())
	data, err := Encode(first)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	im := Import(decoded)

	reloaded := graph.New()
	im.Load(reloaded)

	second := Export(reloaded.Snapshot(), im.Settings)
	again, err := Encode(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))

	orig := store.Snapshot()
	got := reloaded.Snapshot()
	require.Len(t, got.Models, len(orig.Models))
	for i := range orig.Models {
		assert.NotEqual(t, orig.Models[i].ID, got.Models[i].ID, "ids are regenerated")
		assert.Equal(t, *orig.Models[i].Position, *got.Models[i].Position)
	}
	assert.Equal(t, *orig.Enums[0].Position, *got.Enums[0].Position)
	assert.Equal(t, "postgresql", im.Settings.DBProvider())
	assert.Equal(t, "blog", im.Settings.ProjectName())
}

func TestExportStripsIDsAndPositions(t *testing.T) {
	ps := Export(sampleStore(t).Snapshot(), Settings{})
	data, err := Encode(ps)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	sch := doc["schema"].(map[string]any)
	for _, raw := range sch["models"].([]any) {
		m := raw.(map[string]any)
		assert.NotContains(t, m, "id")
		assert.NotContains(t, m, "position")
		for _, c := range m["columns"].([]any) {
			assert.NotContains(t, c.(map[string]any), "id")
		}
	}
	for _, raw := range sch["enums"].([]any) {
		assert.NotContains(t, raw.(map[string]any), "position")
	}
}

func TestExportOmitsEmptyEnums(t *testing.T) {
	store := graph.New()
	store.LoadGraph([]schema.Model{{
		Name:      "User",
		Tablename: "users",
		Columns:   []schema.Column{{Name: "id", Type: schema.ColumnType{Name: schema.TypeInteger}, PrimaryKey: true}},
		Position:  &schema.Position{X: 250, Y: 300},
	}}, nil, nil)

	data, err := Encode(Export(store.Snapshot(), Settings{}))
	require.NoError(t, err)

	var doc struct {
		Schema     map[string]json.RawMessage `json:"schema"`
		UIMetadata struct {
			Models []PositionEntry `json:"models"`
		} `json:"_ui_metadata"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.NotContains(t, doc.Schema, "enums")
	assert.NotContains(t, doc.Schema, "association_tables")
	assert.Equal(t, []PositionEntry{{Name: "User", Position: schema.Position{X: 250, Y: 300}}}, doc.UIMetadata.Models)
}

func TestImportFallsBackToDefaultPosition(t *testing.T) {
	ps := &ProjectSpec{
		Schema: schema.Schema{
			Models: []schema.Model{{Name: "Renamed", Tablename: "renamed"}},
			Enums:  []schema.EnumDefinition{{Name: "Kind", Values: []string{"a"}}},
		},
		UIMetadata: &UIMetadata{Models: []PositionEntry{{Name: "Original", Position: schema.Position{X: 1, Y: 2}}}},
	}
	im := Import(ps)
	require.Len(t, im.Models, 1)
	assert.Equal(t, schema.DefaultPosition, *im.Models[0].Position)
	assert.Equal(t, schema.DefaultPosition, *im.Enums[0].Position)

	im = Import(&ProjectSpec{Schema: ps.Schema})
	assert.Equal(t, schema.DefaultPosition, *im.Models[0].Position)
}

func TestImportClearsStaleIDs(t *testing.T) {
	ps := &ProjectSpec{Schema: schema.Schema{Models: []schema.Model{{
		ID:      "stale",
		Name:    "User",
		Columns: []schema.Column{{ID: "stale-col", Name: "id"}},
	}}}}
	im := Import(ps)
	assert.Empty(t, im.Models[0].ID)
	assert.Empty(t, im.Models[0].Columns[0].ID)
	assert.Equal(t, "stale", ps.Schema.Models[0].ID, "input is not modified")
}

func TestSettingsPassThrough(t *testing.T) {
	settings := Settings{
		Git:      json.RawMessage(`{"repo":"x","nested":{"a":[1,2]}}`),
		Security: json.RawMessage(`{"auth":"jwt"}`),
		Token:    json.RawMessage(`"abc"`),
	}
	data, err := Encode(Export(&schema.Schema{}, settings))
	require.NoError(t, err)
	ps, err := Decode(data)
	require.NoError(t, err)
	got := ps.Settings()
	assert.JSONEq(t, string(settings.Git), string(got.Git))
	assert.JSONEq(t, string(settings.Security), string(got.Security))
	assert.JSONEq(t, string(settings.Token), string(got.Token))
	assert.Empty(t, got.DBProvider())
	assert.Contains(t, string(data), `"models": []`)
}

func TestFileFormats(t *testing.T) {
	ps := Export(sampleStore(t).Snapshot(), sampleSettings())
	want, err := Encode(ps)
	require.NoError(t, err)

	for _, name := range []string{"project.json", "project.yaml", "nested/project.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, WriteFile(path, ps))
			got, err := ReadFile(path)
			require.NoError(t, err)
			data, err := Encode(got)
			require.NoError(t, err)
			assert.JSONEq(t, string(want), string(data))
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("{not json"))
	assert.Error(t, err)
	_, err = DecodeYAML([]byte("schema: [unterminated"))
	assert.Error(t, err)
	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, err != nil && strings.Contains(err.Error(), "reading project spec"))
}
