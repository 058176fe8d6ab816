package chunker

import "testing"

func TestDetectMetadata(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
		dept string
	}{
		{"eligibility", "Admission requires 60% marks in intermediate.", []string{"eligibility"}, ""},
		{"programs", "Offered Programs: BS, MS and PhD.", []string{"programs"}, ""},
		{"faculty", "Dr. Khan is the Dean and a Professor.", []string{"faculty"}, ""},
		{"department", "Department of Electrical Engineering faculty list", []string{"faculty"}, "Electrical Engineering"},
		{"nothing", "The campus has a cafeteria.", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := DetectMetadata(tt.text)
			topics := meta.Topics()
			if len(topics) != len(tt.want) {
				t.Fatalf("Topics() = %v, want %v", topics, tt.want)
			}
			for i := range topics {
				if topics[i] != tt.want[i] {
					t.Errorf("Topics() = %v, want %v", topics, tt.want)
				}
			}
			if meta.Department != tt.dept {
				t.Errorf("Department = %q, want %q", meta.Department, tt.dept)
			}
		})
	}
}
