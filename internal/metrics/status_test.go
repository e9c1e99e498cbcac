package metrics

import (
	"reflect"
	"testing"
)

func TestFlattenStatusBuckets(t *testing.T) {
	tests := []struct {
		name    string
		buckets map[string]map[string]int
		want    []StatusBucket
	}{
		{
			name:    "nil buckets",
			buckets: nil,
			want:    nil,
		},
		{
			name:    "empty buckets",
			buckets: map[string]map[string]int{},
			want:    nil,
		},
		{
			name: "single bucket",
			buckets: map[string]map[string]int{
				"GET Deck": {"404": 10},
			},
			want: []StatusBucket{
				{Request: "GET Deck", Code: "404", Count: 10},
			},
		},
		{
			name: "multiple buckets sorted by count desc",
			buckets: map[string]map[string]int{
				"POST Create Deck": {
					"429": 10,
					"500": 5,
				},
				"Health Check": {
					"transport": 20,
				},
			},
			want: []StatusBucket{
				{Request: "Health Check", Code: "transport", Count: 20},
				{Request: "POST Create Deck", Code: "429", Count: 10},
				{Request: "POST Create Deck", Code: "500", Count: 5},
			},
		},
		{
			name: "tie breaking by request then code",
			buckets: map[string]map[string]int{
				"PUT Update Card": {
					"429": 10,
					"404": 10,
				},
				"GET Card": {
					"500": 10,
				},
			},
			want: []StatusBucket{
				{Request: "GET Card", Code: "500", Count: 10},
				{Request: "PUT Update Card", Code: "404", Count: 10},
				{Request: "PUT Update Card", Code: "429", Count: 10},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlattenStatusBuckets(tt.buckets)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FlattenStatusBuckets() = %v, want %v", got, tt.want)
			}
		})
	}
}
