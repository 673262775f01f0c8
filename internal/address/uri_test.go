package address

import "testing"

func TestParse(t *testing.T) {
	u, err := Parse("content://com.example.inventory/items/3")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if u.Provider != "com.example.inventory" {
		t.Errorf("Provider = %q", u.Provider)
	}
	if u.Path != "items/3" {
		t.Errorf("Path = %q, want items/3", u.Path)
	}
	if got := u.String(); got != "content://com.example.inventory/items/3" {
		t.Errorf("String() = %q", got)
	}

	for _, raw := range []string{"http://x/items", "content:///items", "::bad"} {
		if _, err := Parse(raw); err == nil {
			t.Errorf("Parse(%q) expected error", raw)
		}
	}
}

func TestContentURI(t *testing.T) {
	tests := []struct {
		path, want string
	}{
		{"items", "content://p/items"},
		{"/items/3", "content://p/items/3"},
		{Item("items", 12), "content://p/items/12"},
	}
	for _, tt := range tests {
		if got := ContentURI("p", tt.path); got != tt.want {
			t.Errorf("ContentURI(p, %q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestMIMEType(t *testing.T) {
	dir := Match{Route: Route{Table: "items", Scope: ScopeCollection}}
	item := Match{Route: Route{Table: "items", Scope: ScopeRow}, ID: 1}

	if got := MIMEType("p", dir); got != "vnd.p.dir/items" {
		t.Errorf("MIMEType(dir) = %q", got)
	}
	if got := MIMEType("p", item); got != "vnd.p.item/items" {
		t.Errorf("MIMEType(item) = %q", got)
	}
	if got := item.Path(); got != "items/1" {
		t.Errorf("Path() = %q, want items/1", got)
	}
}

func TestIsDescendant(t *testing.T) {
	tests := []struct {
		parent, child string
		want          bool
	}{
		{"items", "items/3", true},
		{"/items", "items/3/", true},
		{"items", "items", false},
		{"items", "items3", false},
		{"items/3", "items", false},
		{"", "items", false},
	}
	for _, tt := range tests {
		if got := IsDescendant(tt.parent, tt.child); got != tt.want {
			t.Errorf("IsDescendant(%q, %q) = %v, want %v", tt.parent, tt.child, got, tt.want)
		}
	}
}
