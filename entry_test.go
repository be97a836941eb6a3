package vmmu

import "testing"

func TestMatchMask(t *testing.T) {
	entry := NewTLBEntry(0, 0, 32, NewTLBAttr(true, true, false, false))

	if got := entry.MatchMask(); got != 0xFFFFFFFF00000000 {
		t.Errorf("MatchMask() = %#x, want 0xffffffff00000000", got)
	}
	if got := entry.Size(); got != 1<<32 {
		t.Errorf("Size() = %#x, want 2^32", got)
	}
}

func TestEntryTranslate(t *testing.T) {
	// A gigabyte page in the kernel direct map.
	entry := NewTLBEntry(0xFFFF888000000000, 0x0000123000000000, 30,
		NewTLBAttr(true, true, false, false))

	pa, ok := entry.Translate(0xFFFF88803FFFFFFF)
	if !ok {
		t.Fatal("address inside the region did not translate")
	}
	if pa != 0x000012303FFFFFFF {
		t.Errorf("Translate = %#x, want 0x12303fffffff", pa)
	}

	if _, ok := entry.Translate(0xFFFF888040000000); ok {
		t.Error("address outside the region translated")
	}
}

func TestEntryTranslateBoundary(t *testing.T) {
	entry := NewTLBEntry(0x400000, 0x800000, 22, NewTLBAttr(true, true, false, false))

	// First and last byte of the region.
	if pa, ok := entry.Translate(0x400000); !ok || pa != 0x800000 {
		t.Errorf("first byte: (%#x, %v)", pa, ok)
	}
	if pa, ok := entry.Translate(0x7FFFFF); !ok || pa != 0xBFFFFF {
		t.Errorf("last byte: (%#x, %v)", pa, ok)
	}

	// One byte outside on either side.
	if _, ok := entry.Translate(0x3FFFFF); ok {
		t.Error("byte before the region translated")
	}
	if _, ok := entry.Translate(0x800000); ok {
		t.Error("byte after the region translated")
	}
}

func TestNoPagingEntry(t *testing.T) {
	entry := NoPagingEntry()

	if entry.Size() < 1<<30 {
		t.Errorf("no-paging entry covers only %#x bytes", entry.Size())
	}

	pa, ok := entry.Translate(0xDEADBEEF)
	if !ok || pa != 0xDEADBEEF {
		t.Errorf("no-paging entry should identity-map: (%#x, %v)", pa, ok)
	}
}

func TestMisalignedEntryPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("misaligned physical address was accepted")
		}
	}()

	NewTLBEntry(0, 0x800, 12, NewTLBAttr(true, true, false, false))
}
