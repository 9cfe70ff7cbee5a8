package logix

import "testing"

func TestTypeTables(t *testing.T) {
	tests := []struct {
		code uint16
		name string
		size int
	}{
		{TypeBOOL, "BOOL", 1},
		{TypeSINT, "SINT", 1},
		{TypeINT, "INT", 2},
		{TypeDINT, "DINT", 4},
		{TypeLINT, "LINT", 8},
		{TypeREAL, "REAL", 4},
		{TypeLREAL, "LREAL", 8},
		{TypeWORD, "WORD", 2},
		{TypeDWORD, "DWORD", 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := TypeSize(tc.code); got != tc.size {
				t.Errorf("TypeSize(0x%04X) = %d, want %d", tc.code, got, tc.size)
			}
			if got := TypeName(tc.code); got != tc.name {
				t.Errorf("TypeName(0x%04X) = %q, want %q", tc.code, got, tc.name)
			}
			code, ok := TypeCodeFromName(tc.name)
			if !ok || code != tc.code {
				t.Errorf("TypeCodeFromName(%q) = 0x%04X, %v", tc.name, code, ok)
			}
		})
	}
}

func TestTypeCodeFromNameUnknown(t *testing.T) {
	if _, ok := TypeCodeFromName("FLOAT"); ok {
		t.Error("TypeCodeFromName should reject unknown names")
	}
}

func TestTypeMasks(t *testing.T) {
	if !IsStructure(TypeStructureMask | 0x0123) {
		t.Error("IsStructure() = false for structure code")
	}
	if IsStructure(TypeDINT) {
		t.Error("IsStructure(DINT) = true")
	}
	if !IsArray(TypeArrayMask | TypeDINT) {
		t.Error("IsArray() = false for array code")
	}
	if got := TemplateID(TypeStructureMask | 0x0123); got != 0x0123 {
		t.Errorf("TemplateID() = 0x%04X", got)
	}
	if got := TemplateID(TypeDINT); got != 0 {
		t.Errorf("TemplateID(DINT) = 0x%04X, want 0", got)
	}
}

func TestTypeSizeStripsMasks(t *testing.T) {
	if got := TypeSize(TypeArrayMask | TypeINT); got != 2 {
		t.Errorf("TypeSize(array INT) = %d, want 2", got)
	}
}

func TestTypeInfo(t *testing.T) {
	t.Run("atomic", func(t *testing.T) {
		info, err := AtomicType("DINT")
		if err != nil {
			t.Fatal(err)
		}
		if info.Size != 4 || info.Struct {
			t.Errorf("info = %+v", info)
		}
		code, ok := info.Code()
		if !ok || code != TypeDINT {
			t.Errorf("Code() = 0x%04X, %v", code, ok)
		}
	})

	t.Run("unknown atomic", func(t *testing.T) {
		if _, err := AtomicType("QUADWORD"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("structure", func(t *testing.T) {
		info := StructType(0x01FE, 88)
		if !info.Struct || info.Handle != 0x01FE {
			t.Errorf("info = %+v", info)
		}
		if _, ok := info.Code(); ok {
			t.Error("structures have no atomic code")
		}
		packed, err := info.packed()
		if err != nil {
			t.Fatal(err)
		}
		want := []byte{0xA0, 0x02, 0xFE, 0x01}
		for i := range want {
			if packed[i] != want[i] {
				t.Fatalf("packed = % X, want % X", packed, want)
			}
		}
	})
}
