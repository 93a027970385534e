package identity

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"89161234567", "79161234567"},
		{"+7 (916) 123-45-67", "79161234567"},
		{"8 916 123 45 67", "79161234567"},
		{"9161234567", "9161234567"},
		{"tel: 123", "123"},
		{"", ""},
		{"8123456789", "8123456789"}, // 10 digits, leading 8 kept
	}
	for _, c := range cases {
		if got := NormalizePhone(c.in); got != c.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPhoneKey_PrefixInvariance(t *testing.T) {
	variants := []string{"89161234567", "+79161234567", "79161234567", "9161234567"}
	want := "9161234567"
	for _, v := range variants {
		if got := PhoneKey(v); got != want {
			t.Errorf("PhoneKey(%q) = %q, want %q", v, got, want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  USER@Example.COM ", "user@example.com"},
		{"ivan.petrov@mail.ru", "ivan.petrov@mail.ru"},
		{"not-an-email", ""},
		{"missing@tld", ""},
		{"@nouser.com", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeEmail(c.in); got != c.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestClientKey_SamePhoneDifferentPrefix(t *testing.T) {
	a := ClientKey("89161234567", "")
	b := ClientKey("+79161234567", "")
	if a == "" {
		t.Fatal("expected non-empty key")
	}
	if a != b {
		t.Errorf("keys differ for the same phone: %q vs %q", a, b)
	}
}

func TestClientKey_EmailOnly(t *testing.T) {
	a := ClientKey("", "guest@example.com")
	b := ClientKey("", "GUEST@example.com ")
	if a == "" {
		t.Fatal("expected non-empty key")
	}
	if a != b {
		t.Errorf("keys differ for the same email: %q vs %q", a, b)
	}
}

func TestClientKey_EmptyIdentity(t *testing.T) {
	if got := ClientKey("", ""); got != "" {
		t.Errorf("ClientKey(\"\", \"\") = %q, want empty", got)
	}
	if got := ClientKey("abc", "not-an-email"); got != "" {
		t.Errorf("ClientKey with unusable parts = %q, want empty", got)
	}
}

func TestClientKey_DistinctIdentities(t *testing.T) {
	a := ClientKey("89161234567", "a@example.com")
	b := ClientKey("89161234567", "b@example.com")
	if a == b {
		t.Error("different emails must produce different keys")
	}
}
