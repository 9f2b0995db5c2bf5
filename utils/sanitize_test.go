package utils

import "testing"

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Seaside Hotel", "Seaside Hotel"},
		{"Hotel: Sea/View", "Hotel_ Sea_View"},
		{`a\b/c*d?e:f"g<h>i|j`, "a_b_c_d_e_f_g_h_i_j"},
		{"Hotel ///// Annex", "Hotel _ Annex"},
		{"  padded  ", "padded"},
		{"", ""},
	}

	for _, tt := range tests {
		got := SafeFilename(tt.in)
		if got != tt.want {
			t.Errorf("SafeFilename(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}
