package core

import "testing"

func TestMemberValidate(t *testing.T) {
	cases := []struct {
		m  Member
		ok bool
	}{
		{Member{Email: "a@example.com"}, true},
		{Member{Email: " a@example.com "}, true},
		{Member{Email: ""}, false},
		{Member{Email: "   "}, false},
		{Member{Email: "not-an-address"}, false},
	}
	for i, tc := range cases {
		err := tc.m.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMemberDisplayName(t *testing.T) {
	m := Member{Nickname: "Gio", Email: "gio@example.com"}
	if m.DisplayName() != "Gio" {
		t.Fatalf("got %q, want nickname", m.DisplayName())
	}
	m.Nickname = "  "
	if m.DisplayName() != "gio@example.com" {
		t.Fatalf("got %q, want email fallback", m.DisplayName())
	}
}

func TestMemberPaidDefaultsToUnpaid(t *testing.T) {
	m := Member{Email: "a@x"}
	if m.Paid("2025-08") {
		t.Fatalf("nil payments map must read as unpaid")
	}
}

func TestAdminSetContains(t *testing.T) {
	set := AdminSet{Emails: []string{"Admin@Example.com", "boss@club.it"}}
	cases := []struct {
		email string
		want  bool
	}{
		{"admin@example.com", true},
		{"ADMIN@EXAMPLE.COM", true},
		{" boss@club.it ", true},
		{"member@example.com", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := set.Contains(tc.email); got != tc.want {
			t.Fatalf("Contains(%q) = %v, want %v", tc.email, got, tc.want)
		}
	}
}
