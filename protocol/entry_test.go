package protocol

import "testing"

func TestParseEntryType(t *testing.T) {
	cases := map[string]EntryType{
		"root":          EntryTypeRoot,
		"-1":            EntryTypeRoot,
		"ethereum":      EntryTypeEthereum,
		" Bitcoin-Cash": EntryTypeBitcoinCash,
		"14":            EntryTypeAccountCredentials,
	}
	for in, want := range cases {
		got, err := ParseEntryType(in)
		if err != nil {
			t.Fatalf("ParseEntryType(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseEntryType(%q) = %s, want %s", in, got, want)
		}
	}

	for _, in := range []string{"", "0", "1", "accounts", "99"} {
		if _, err := ParseEntryType(in); err == nil {
			t.Errorf("ParseEntryType(%q) accepted", in)
		}
	}
}

func TestEntryTypesSorted(t *testing.T) {
	types := EntryTypes()
	if len(types) != len(entryNames) {
		t.Fatalf("expected %d types, got %d", len(entryNames), len(types))
	}
	for i := 1; i < len(types); i++ {
		if types[i-1] >= types[i] {
			t.Fatalf("types not sorted at %d", i)
		}
	}
	if types[0] != EntryTypeRoot {
		t.Errorf("root should sort first, got %s", types[0])
	}

	if EntryType(0).Valid() {
		t.Error("0 is not an entry type")
	}
	if EntryType(42).String() != "unknown(42)" {
		t.Errorf("unexpected name %s", EntryType(42))
	}
}
