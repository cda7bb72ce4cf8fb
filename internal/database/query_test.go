package database

import (
	"reflect"
	"testing"
)

func TestQueryAttach(t *testing.T) {
	q := NewQuery("SELECT * FROM t WHERE a = :a", Params{"a": 1, "b": 2})
	q.Attach(QueryAddon{String: "AND b = :b", Data: Params{"b": 3}})

	if want := "SELECT * FROM t WHERE a = :a AND b = :b "; q.String != want {
		t.Errorf("String = %q, want %q", q.String, want)
	}
	if q.Data["a"] != 1 {
		t.Errorf("Data[a] = %v, want 1", q.Data["a"])
	}
	if q.Data["b"] != 3 {
		t.Errorf("Data[b] = %v, want addon value 3", q.Data["b"])
	}
}

func TestQueryAttachNilData(t *testing.T) {
	q := NewQuery("UPDATE t SET x = 1", nil)
	q.Attach(QueryAddon{String: "WHERE id = :id", Data: Params{"id": 7}})

	if q.Data["id"] != 7 {
		t.Errorf("Data[id] = %v, want 7", q.Data["id"])
	}
}

func TestQueryAttachEmptyAddon(t *testing.T) {
	q := NewQuery("SELECT 1", nil)
	q.Attach(QueryAddon{})

	if q.String != "SELECT 1  " {
		t.Errorf("String = %q, want %q", q.String, "SELECT 1  ")
	}
	if q.Data != nil {
		t.Errorf("Data = %v, want nil", q.Data)
	}
}

func TestQueryAttachPositionalAppends(t *testing.T) {
	q := NewQuery("DELETE FROM t WHERE a = ?", Params{"0": 1})
	q.Attach(QueryAddon{String: "AND b = ?", Data: Params{"0": 2}})
	q.Attach(QueryAddon{String: "AND c IN (?, ?)", Data: Params{"1": 4, "0": 3}})

	want := Params{"0": 1, "1": 2, "2": 3, "3": 4}
	if !reflect.DeepEqual(q.Data, want) {
		t.Errorf("Data = %v, want %v", q.Data, want)
	}

	_, args, err := bindParams("sqlite3", q.String, q.Data)
	if err != nil {
		t.Fatalf("bindParams() error = %v", err)
	}
	if !reflect.DeepEqual(args, []any{1, 2, 3, 4}) {
		t.Errorf("args = %v, want placeholders bound in fragment order", args)
	}
}

func TestQueryAttachChain(t *testing.T) {
	addons := []QueryAddon{
		{String: "WHERE a = :a", Data: Params{"a": 1}},
		{String: "AND b = :b", Data: Params{"b": 2}},
		{String: "OR a = :a", Data: Params{"a": 3}},
		{String: "LIMIT 1"},
	}

	q := NewQuery("SELECT * FROM t", nil)
	wantString := "SELECT * FROM t"
	for _, a := range addons {
		q.Attach(a)
		wantString += " " + a.String + " "
	}

	if q.String != wantString {
		t.Errorf("String = %q, want %q", q.String, wantString)
	}
	if want := (Params{"a": 3, "b": 2}); !reflect.DeepEqual(q.Data, want) {
		t.Errorf("Data = %v, want %v (later addon wins)", q.Data, want)
	}
}

func TestQueryDoesNotAliasCallerMaps(t *testing.T) {
	base := Params{"id": 1}
	addon := Params{"y": 2}

	q := NewQuery("UPDATE t SET y = :y", base)
	q.Attach(QueryAddon{String: "WHERE id = :id", Data: addon})
	q.Data["id"] = 99

	if !reflect.DeepEqual(base, Params{"id": 1}) {
		t.Errorf("base = %v, want it unchanged", base)
	}
	if !reflect.DeepEqual(addon, Params{"y": 2}) {
		t.Errorf("addon = %v, want it unchanged", addon)
	}
}
