package plan_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"barrel/internal/barrel"
	"barrel/internal/dbclient"
	"barrel/internal/domain"
	"barrel/internal/plan"
)

const foodPlan = `
connection:
  driver: memory
tables:
  - name: food
    columns:
      - {name: food_id, gen: uuid}
      - {name: name, gen: cycle, choices: [apple, bread]}
      - {name: calories, gen: sequence, start: 100, step: 10}
      - {name: slug, gen: copy, from: name}
  - name: ingredient
    table: ingredients
    columns:
      - {name: ingredient_id, gen: sequence, start: 1}
      - {name: name, value: sugar}
  - name: food_ingredient
    columns:
      - {name: food_id, ref: food.food_id}
      - {name: ingredient_id, gen: ref, ref: ingredient.ingredient_id}
      - {name: milligrams, value: 0}
generate:
  - {table: food, count: 2}
  - {table: food_ingredient, count: 2, overrides: {milligrams: 15}}
`

// ─────────────────────────────────────────────────────────────
// Parsing and validation
// ─────────────────────────────────────────────────────────────

func TestParse_Valid(t *testing.T) {
	p, err := plan.Parse([]byte(foodPlan))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Connection.Driver != domain.DatabaseDriverMemory {
		t.Errorf("driver = %q", p.Connection.Driver)
	}
	names := p.TableNames()
	if len(names) != 3 || names[0] != "food" || names[2] != "food_ingredient" {
		t.Errorf("tables = %v", names)
	}
	if len(p.Steps) != 2 || p.Steps[1].Count != 2 {
		t.Errorf("steps = %+v", p.Steps)
	}
}

func TestParse_DefaultsCountAndDriver(t *testing.T) {
	p, err := plan.Parse([]byte(`
tables:
  - name: t
    columns: [{name: a, value: 1}]
generate:
  - table: t
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Steps[0].Count != 1 {
		t.Errorf("count = %d, want 1", p.Steps[0].Count)
	}
	if p.Connection.Driver != domain.DatabaseDriverMemory {
		t.Errorf("driver = %q, want memory", p.Connection.Driver)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no tables", `generate: []`},
		{"unknown field", "tables:\n  - name: t\n    colums: []"},
		{"unknown gen", "tables:\n  - name: t\n    columns: [{name: a, gen: random}]"},
		{"value and gen", "tables:\n  - name: t\n    columns: [{name: a, gen: uuid, value: 1}]"},
		{"cycle without choices", "tables:\n  - name: t\n    columns: [{name: a, gen: cycle}]"},
		{"copy from later column", "tables:\n  - name: t\n    columns: [{name: a, gen: copy, from: b}, {name: b, value: 1}]"},
		{"ref without column", "tables:\n  - name: t\n    columns: [{name: a, ref: t}]"},
		{"ref to unknown table", "tables:\n  - name: t\n    columns: [{name: a, ref: x.id}]"},
		{"ref to unknown column", "tables:\n  - name: t\n    columns: [{name: a, ref: t.id}]"},
		{"duplicate table", "tables:\n  - {name: t, columns: [{name: a}]}\n  - {name: t, columns: [{name: a}]}"},
		{"step unknown table", "tables:\n  - {name: t, columns: [{name: a}]}\ngenerate:\n  - {table: x}"},
		{"negative count", "tables:\n  - {name: t, columns: [{name: a}]}\ngenerate:\n  - {table: t, count: -1}"},
		{"self reference", "tables:\n  - name: category\n    columns: [{name: id, gen: uuid}, {name: parent_id, ref: category.id}]"},
		{"two-table cycle", "tables:\n  - {name: a, columns: [{name: id, value: 1}, {name: b_id, ref: b.id}]}\n  - {name: b, columns: [{name: id, value: 2}, {name: a_id, ref: a.id}]}"},
		{"bad connection", "connection: {driver: postgres}\ntables:\n  - {name: t, columns: [{name: a}]}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := plan.Parse([]byte(tt.yaml))
			if !errors.Is(err, plan.ErrInvalidPlan) {
				t.Errorf("err = %v, want ErrInvalidPlan", err)
			}
		})
	}
}

func TestParse_ReferenceCycleNamesChain(t *testing.T) {
	_, err := plan.Parse([]byte(`
tables:
  - {name: a, columns: [{name: id, value: 1}, {name: b_id, ref: b.id}]}
  - {name: b, columns: [{name: id, value: 2}, {name: c_id, ref: c.id}]}
  - {name: c, columns: [{name: id, value: 3}, {name: a_id, ref: a.id}]}
`))
	if !errors.Is(err, plan.ErrInvalidPlan) {
		t.Fatalf("err = %v, want ErrInvalidPlan", err)
	}
	if !strings.Contains(err.Error(), "a -> b -> c -> a") {
		t.Errorf("err = %v, want the cycle named", err)
	}
}

func TestParse_SharedTargetIsNotACycle(t *testing.T) {
	_, err := plan.Parse([]byte(`
tables:
  - {name: food, columns: [{name: id, value: 1}]}
  - {name: meal, columns: [{name: id, value: 2}, {name: food_id, ref: food.id}]}
  - {name: plate, columns: [{name: meal_id, ref: meal.id}, {name: food_id, ref: food.id}]}
`))
	if err != nil {
		t.Errorf("Parse: %v", err)
	}
}

func TestLoad_SetsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "food.yaml")
	if err := os.WriteFile(path, []byte(foodPlan), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := plan.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Path != path {
		t.Errorf("Path = %q, want %q", p.Path, path)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := plan.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

// ─────────────────────────────────────────────────────────────
// Apply + Generate
// ─────────────────────────────────────────────────────────────

func TestApplyGenerate_EndToEnd(t *testing.T) {
	p, err := plan.Parse([]byte(foodPlan))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	store := dbclient.NewMemoryStore()
	b := barrel.New(store)
	p.Apply(b)

	schema, err := b.Schema("ingredient")
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	if schema.Table != "ingredients" {
		t.Errorf("Table = %q, want ingredients", schema.Table)
	}

	batches, err := p.Generate(b)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(batches))
	}

	foods := b.Records(batches[0])
	if foods[0]["name"] != "apple" || foods[1]["name"] != "bread" {
		t.Errorf("cycle names = %v, %v", foods[0]["name"], foods[1]["name"])
	}
	if foods[0]["calories"] != 100 || foods[1]["calories"] != 110 {
		t.Errorf("sequence = %v, %v", foods[0]["calories"], foods[1]["calories"])
	}
	if foods[0]["slug"] != foods[0]["name"] {
		t.Errorf("copy slug = %v, want %v", foods[0]["slug"], foods[0]["name"])
	}

	if _, err := b.Insert(context.Background()); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// 2 foods + per food_ingredient record one food and one ingredient + the batch itself
	if got := len(store.Rows("food")); got != 4 {
		t.Errorf("food rows = %d, want 4", got)
	}
	if got := len(store.Rows("ingredients")); got != 2 {
		t.Errorf("ingredient rows = %d, want 2", got)
	}

	links := store.Rows("food_ingredient")
	if len(links) != 2 {
		t.Fatalf("food_ingredient rows = %d, want 2", len(links))
	}
	foodIDs := make(map[any]bool)
	for _, f := range store.Rows("food") {
		foodIDs[f["food_id"]] = true
	}
	for _, l := range links {
		if !foodIDs[l["food_id"]] {
			t.Errorf("link food_id %v does not match an inserted food", l["food_id"])
		}
		if l["milligrams"] != 15 {
			t.Errorf("milligrams = %v, want override 15", l["milligrams"])
		}
	}
}

func TestApply_FreshSequencePerBarrel(t *testing.T) {
	p, err := plan.Parse([]byte(foodPlan))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		b := barrel.New(dbclient.NewMemoryStore())
		p.Apply(b)
		rec, err := b.CreateRecord("ingredient", nil)
		if err != nil {
			t.Fatal(err)
		}
		if rec["ingredient_id"] != 1 {
			t.Errorf("run %d: ingredient_id = %v, want 1", i, rec["ingredient_id"])
		}
	}
}
