package barrel_test

import (
	"errors"
	"reflect"
	"testing"

	"barrel/internal/barrel"
)

func TestCreateRecord_ResolvesInDeclarationOrder(t *testing.T) {
	b, _ := newTestBarrel(newFakeBackend())

	b.AddSchema("food", []barrel.Property{
		{Name: "food_id", Key: "foodId", Value: static("f1")},
		{Name: "calories", Value: barrel.Generate(func(obj barrel.Record, key string) (any, error) {
			if obj["foodId"] != "f1" {
				t.Errorf("calories: expected foodId f1, got %v", obj["foodId"])
			}
			if key != "calories" {
				t.Errorf("calories: expected key 'calories', got %q", key)
			}
			if _, ok := obj["vitamins"]; ok {
				t.Error("calories: saw a later property")
			}
			return 120, nil
		})},
		{Name: "vitamins", Value: barrel.Generate(func(obj barrel.Record, key string) (any, error) {
			if obj["foodId"] != "f1" || obj["calories"] != 120 {
				t.Errorf("vitamins: unexpected partial record %v", obj)
			}
			return []string{"A", "B"}, nil
		})},
	})

	rec, err := b.CreateRecord("food", nil)
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}

	want := barrel.Record{"foodId": "f1", "calories": 120, "vitamins": []string{"A", "B"}}
	if !reflect.DeepEqual(rec, want) {
		t.Errorf("expected %v, got %v", want, rec)
	}
}

func TestCreateRecord_OverridesAreVerbatim(t *testing.T) {
	b, _ := newTestBarrel(newFakeBackend())

	called := false
	b.AddSchema("food", []barrel.Property{
		{Name: "name", Value: barrel.Generate(func(barrel.Record, string) (any, error) {
			called = true
			return "generated", nil
		})},
		{Name: "calories", Value: static(100)},
	})

	override := func() string { return "not called" }
	rec, err := b.CreateRecord("food", barrel.Record{"name": override, "calories": 5})
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	if called {
		t.Error("generator ran for an overridden key")
	}
	if _, ok := rec["name"].(func() string); !ok {
		t.Errorf("expected override function stored verbatim, got %T", rec["name"])
	}
	if rec["calories"] != 5 {
		t.Errorf("expected calories 5, got %v", rec["calories"])
	}
}

func TestCreateRecord_KeyAliasing(t *testing.T) {
	b, _ := newTestBarrel(newFakeBackend())
	b.AddSchema("food", []barrel.Property{
		{Name: "food_id", Key: "foodId", Value: static("abc")},
	})

	rec, err := b.CreateRecord("food", nil)
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	if rec["foodId"] != "abc" {
		t.Errorf("expected foodId=abc, got %v", rec)
	}
	if _, ok := rec["food_id"]; ok {
		t.Error("record must not be keyed by the external name")
	}
}

func TestCreateRecord_KeyCollisionLastWins(t *testing.T) {
	b, _ := newTestBarrel(newFakeBackend())
	b.AddSchema("food", []barrel.Property{
		{Name: "food_id", Key: "id", Value: static("first")},
		{Name: "legacy_id", Key: "id", Value: barrel.Generate(func(obj barrel.Record, _ string) (any, error) {
			return obj["id"].(string) + "+second", nil
		})},
	})

	rec, err := b.CreateRecord("food", nil)
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	if len(rec) != 1 || rec["id"] != "first+second" {
		t.Errorf("expected {id: first+second}, got %v", rec)
	}
}

func TestCreateRecord_LiteralPendingKeptUnresolved(t *testing.T) {
	b, _ := newTestBarrel(newFakeBackend())
	p := barrel.NewPending()
	b.AddSchema("food", []barrel.Property{{Name: "calories", Value: static(p)}})

	rec, err := b.CreateRecord("food", nil)
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	if rec["calories"] != p {
		t.Errorf("expected the literal Pending, got %v", rec["calories"])
	}
}

func TestCreateRecord_SchemaNotFound(t *testing.T) {
	b, _ := newTestBarrel(newFakeBackend())

	_, err := b.CreateRecord("dinosaurs", nil)
	if !errors.Is(err, barrel.ErrSchemaNotFound) {
		t.Fatalf("expected ErrSchemaNotFound, got %v", err)
	}
	var nf *barrel.SchemaNotFoundError
	if !errors.As(err, &nf) || nf.Name != "dinosaurs" {
		t.Errorf("expected SchemaNotFoundError naming dinosaurs, got %v", err)
	}
}

func TestCreateRecord_GeneratorError(t *testing.T) {
	b, _ := newTestBarrel(newFakeBackend())
	boom := errors.New("boom")
	b.AddSchema("food", []barrel.Property{
		{Name: "name", Value: barrel.Generate(func(barrel.Record, string) (any, error) { return nil, boom })},
	})

	if _, err := b.CreateRecord("food", nil); !errors.Is(err, boom) {
		t.Fatalf("expected generator error, got %v", err)
	}
}

func TestAddSchema_Overwrites(t *testing.T) {
	b, _ := newTestBarrel(newFakeBackend())
	b.AddSchema("food", []barrel.Property{{Name: "a", Value: static(1)}})
	b.AddSchema("food", []barrel.Property{{Name: "b", Value: static(2)}})

	rec, err := b.CreateRecord("food", nil)
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	if !reflect.DeepEqual(rec, barrel.Record{"b": 2}) {
		t.Errorf("expected the second schema to win, got %v", rec)
	}

	s, _ := b.Schema("food")
	if s.Table != "food" {
		t.Errorf("expected table to default to schema name, got %q", s.Table)
	}
	if got := b.Schemas(); !reflect.DeepEqual(got, []string{"food"}) {
		t.Errorf("expected [food], got %v", got)
	}
}
