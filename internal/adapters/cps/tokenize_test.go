package cps_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/csg33k/cps-dct/internal/adapters/cps"
)

func TestNumericTokens(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"", nil},
		{"no digits here", nil},
		{"  15  1 - 15", []int{15, 1, 15}},
		{"Q25C 527 530", []int{25, 527, 530}},
		{"1-15", []int{1, 15}},
		{"2.5", []int{2, 5}},
		{"-7", []int{7}},
		{"007", []int{7}},
		{"(part 1)   15  1   1  15", []int{1, 15, 1, 1, 15}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, cps.NumericTokens(tt.in)); diff != "" {
				t.Errorf("NumericTokens(%q) (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}
