package grammar

import "testing"

func TestSemicolonProvider_TypeOf(t *testing.T) {
	p := NewSemicolonProvider()

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr bool
	}{
		{
			name:  "spec worked example",
			token: "domain;X;course;7;user;42",
			want:  "domain;course;user",
		},
		{
			name:  "single pair",
			token: "perm;read",
			want:  "perm",
		},
		{
			name:    "empty token",
			token:   "",
			wantErr: true,
		},
		{
			name:    "odd segment count",
			token:   "domain;X;course",
			wantErr: true,
		},
		{
			name:    "empty key segment",
			token:   ";X",
			wantErr: true,
		},
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

func TestSemicolonProvider_Matches(t *testing.T) {
	p := NewSemicolonProvider()

	tests := []struct {
		pattern string
		token   string
		want    bool
	}{
		{pattern: "perm:type:%d+", token: "perm:type:42", want: true},
		{pattern: "perm:type:%d+", token: "perm:othertype:42", want: false},
		{pattern: "perm:x:.*", token: "perm:x:1", want: true},
		{pattern: "perm:x:.*", token: "perm:y:1", want: false},
		{pattern: p.EveryTypePattern(), token: "anything:at:all", want: true},
		{pattern: "*", token: "anything:at:all", want: true},
	}

	for _, tt := range tests {
		got, err := p.Matches(tt.pattern, tt.token)
		if err != nil {
			t.Fatalf("Matches(%q, %q) unexpected error: %v", tt.pattern, tt.token, err)
		}
		if got != tt.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tt.pattern, tt.token, got, tt.want)
		}
	}
}

func TestSemicolonProvider_ContextFilterFor(t *testing.T) {
	p := NewSemicolonProvider()

	filter, err := p.ContextFilterFor("prefix", "perm:x")
	if err != nil {
		t.Fatalf("ContextFilterFor unexpected error: %v", err)
	}

	for _, tok := range []string{"perm:x:1", "perm:x:2", "perm:x:3"} {
		ok, err := p.Matches(filter, tok)
		if err != nil || !ok {
			t.Errorf("filter %q should match %q (err=%v)", filter, tok, err)
		}
	}
	ok, err := p.Matches(filter, "perm:y:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Errorf("filter %q should not match perm:y:1", filter)
	}
}

func TestSemicolonProvider_FilterToContext(t *testing.T) {
	p := NewSemicolonProvider()
	filter, err := p.ContextFilterFor("prefix", "perm:read")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := p.FilterToContext(filter, []string{"perm:read:1", "perm:read:2", "perm:write:1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("FilterToContext returned %v, want 2 matches", got)
	}
}

func TestSemicolonProvider_InvalidPattern(t *testing.T) {
	p := NewSemicolonProvider()
	if _, err := p.Matches("perm:x:[", "perm:x:1"); err == nil {
		t.Error("expected error for unbalanced character class")
	}
}
