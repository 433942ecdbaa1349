package pump

import "testing"

func TestTail(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		writes    []string
		want      string
		truncated bool
	}{
		{"fits", 10, []string{"abc", "def"}, "abcdef", false},
		{"exact", 6, []string{"abc", "def"}, "abcdef", false},
		{"drops oldest", 5, []string{"abc", "def"}, "bcdef", true},
		{"single oversized write", 4, []string{"abcdefgh"}, "efgh", true},
		{"oversized after content", 4, []string{"xy", "abcdefgh"}, "efgh", true},
		{"empty", 4, nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tail := NewTail(tt.size)
			for _, w := range tt.writes {
				n, err := tail.Write([]byte(w))
				if err != nil || n != len(w) {
					t.Fatalf("Write(%q) = %d, %v", w, n, err)
				}
			}
			if got := tail.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if got := tail.Truncated(); got != tt.truncated {
				t.Errorf("Truncated() = %v, want %v", got, tt.truncated)
			}
		})
	}
}

func TestTail_DefaultSize(t *testing.T) {
	tail := NewTail(0)
	big := make([]byte, DefaultTailSize+10)
	_, _ = tail.Write(big)
	if len(tail.String()) != DefaultTailSize {
		t.Errorf("retained %d bytes, want %d", len(tail.String()), DefaultTailSize)
	}
	if tail.Total() != int64(len(big)) {
		t.Errorf("Total() = %d, want %d", tail.Total(), len(big))
	}
}
