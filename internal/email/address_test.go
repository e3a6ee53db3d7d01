package email

import "testing"

func TestSplitAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		address   string
		wantLocal string
		wantDom   string
		wantErr   bool
	}{
		{name: "simple", address: "alice@example.com", wantLocal: "alice", wantDom: "example.com"},
		{name: "dotted local part", address: "first.last@sub.example.com", wantLocal: "first.last", wantDom: "sub.example.com"},
		{name: "missing at sign", address: "alice.example.com", wantErr: true},
		{name: "empty local part", address: "@example.com", wantErr: true},
		{name: "empty domain", address: "alice@", wantErr: true},
		{name: "empty string", address: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			local, dom, err := SplitAddress(tt.address)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SplitAddress(%q) expected error, got %q / %q", tt.address, local, dom)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitAddress(%q) unexpected error: %v", tt.address, err)
			}
			if local != tt.wantLocal || dom != tt.wantDom {
				t.Errorf("SplitAddress(%q) = %q / %q, want %q / %q", tt.address, local, dom, tt.wantLocal, tt.wantDom)
			}
		})
	}
}
