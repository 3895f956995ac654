package grammar

import "testing"

func TestStaticProvider_TypeOf(t *testing.T) {
	p := NewStaticProvider(map[string]string{
		"perm:read:":  "read",
		"perm:write:": "write",
		"perm:":       "generic",
	})

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr bool
	}{
		{name: "specific prefix wins over generic", token: "perm:read:1", want: "read"},
		{name: "other specific prefix", token: "perm:write:1", want: "write"},
		{name: "falls back to generic", token: "perm:admin:1", want: "generic"},
		{name: "no match", token: "other:1", wantErr: true},
		{name: "empty", token: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.TypeOf(tt.token)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("TypeOf(%q) = %q, want error", tt.token, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("TypeOf(%q) unexpected error: %v", tt.token, err)
			}
			if got != tt.want {
				t.Errorf("TypeOf(%q) = %q, want %q", tt.token, got, tt.want)
			}
		})
	}
}

func TestStaticProvider_Matches(t *testing.T) {
	p := NewStaticProvider(map[string]string{"perm:": "generic"})
	ok, err := p.Matches(p.EveryTypePattern(), "perm:anything")
	if err != nil || !ok {
		t.Errorf("EveryTypePattern should match any token (err=%v, ok=%v)", err, ok)
	}
}
