package serialmux

import "testing"

func TestClassifyPayload(t *testing.T) {
	tests := []struct {
		payload string
		want    string
	}{
		{frameA, EventTypeFrame},
		{"#Obj,1,2,3\r\n", EventTypeFrame},
		{"  #Obj,1,2,3", EventTypeUnknown},
		{"#Err,inter,3,but no data", EventTypeDeviceError},
		{"boot ok", EventTypeUnknown},
		{"", EventTypeUnknown},
		{"Obj,1,2", EventTypeUnknown},
	}
	for _, tt := range tests {
		if got := ClassifyPayload(tt.payload); got != tt.want {
			t.Errorf("ClassifyPayload(%q) = %q, want %q", tt.payload, got, tt.want)
		}
	}
}
